package console

import (
	"context"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
	"codeberg.org/mutker/reqprof/internal/profiler"
)

// BatchMethod is the request method of profiled console runs.
const BatchMethod = "BATCH"

// Console is a command line entry point. Run returns the exit code.
type Console interface {
	Name() string
	Run(ctx context.Context, args []string) (int, error)
}

// Cobra runs a cobra command tree.
type Cobra struct {
	cmd *cobra.Command
}

func NewCobra(cmd *cobra.Command) *Cobra {
	return &Cobra{cmd: cmd}
}

func (c *Cobra) Name() string {
	return c.cmd.Name()
}

func (c *Cobra) Command() *cobra.Command {
	return c.cmd
}

func (c *Cobra) Run(ctx context.Context, args []string) (int, error) {
	c.cmd.SetArgs(args)
	if err := c.cmd.ExecuteContext(ctx); err != nil {
		return 1, errors.New().Wrap(ErrCommandFailed, err)
	}
	return 0, nil
}

// Profiling runs a console and records the run as one profile.
type Profiling struct {
	console  Console
	profiler *profiler.Profiler
	logger   logger.Logger
}

func NewProfiling(c Console, p *profiler.Profiler) *Profiling {
	return &Profiling{
		console:  c,
		profiler: p,
		logger:   logger.Get("console"),
	}
}

func (p *Profiling) Name() string {
	return p.console.Name()
}

// Run returns the exit code and error of the wrapped console. Failing
// to store the profile is logged only.
func (p *Profiling) Run(ctx context.Context, args []string) (int, error) {
	code, runErr := p.console.Run(ctx, args)

	status := http.StatusOK
	if code != 0 {
		status = http.StatusInternalServerError
	}

	argv := append([]string{p.console.Name()}, args...)
	r, err := batchRequest(ctx, argv)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to build console request")
		return code, runErr
	}

	prof, err := p.profiler.CreateProfile(ctx, r, &profiler.Response{
		StatusCode: status,
		Header:     http.Header{},
	})
	if err != nil {
		p.logger.Error().Err(err).Str("command", r.RequestURI).Msg("Failed to create profile")
		return code, runErr
	}

	p.logger.Debug().
		Str("profile_id", prof.ID()).
		Int("exit_code", code).
		Msg("Console run profiled")

	return code, runErr
}

func batchRequest(ctx context.Context, argv []string) (*http.Request, error) {
	r, err := http.NewRequestWithContext(ctx, BatchMethod, "/", http.NoBody)
	if err != nil {
		return nil, errors.New().Wrap(ErrProfileFailed, err)
	}
	r.RequestURI = strings.Join(argv, " ")
	return r, nil
}
