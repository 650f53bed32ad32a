package console_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/reqprof/internal/console"
	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/profile"
	"codeberg.org/mutker/reqprof/internal/profiler"
)

type stubConsole struct {
	code int
	err  error
	args []string
}

func (c *stubConsole) Name() string { return "tool" }

func (c *stubConsole) Run(_ context.Context, args []string) (int, error) {
	c.args = args
	return c.code, c.err
}

func newProfiler(t *testing.T) (*profiler.Profiler, profile.Repository) {
	t.Helper()
	repo, err := profile.NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)
	return profiler.New(repo), repo
}

func findAll(t *testing.T, repo profile.Repository) []*profile.Profile {
	t.Helper()
	profiles, err := repo.FindAll(context.Background(), profile.Query{})
	require.NoError(t, err)
	return profiles
}

func TestProfilingCreatesBatchProfile(t *testing.T) {
	p, repo := newProfiler(t)
	inner := &stubConsole{}

	code, err := console.NewProfiling(inner, p).Run(context.Background(), []string{"migrate", "--force"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"migrate", "--force"}, inner.args)

	profiles := findAll(t, repo)
	require.Len(t, profiles, 1)
	assert.Equal(t, console.BatchMethod, profiles[0].Method())
	assert.Equal(t, "tool migrate --force", profiles[0].URI())
	assert.Equal(t, http.StatusOK, profiles[0].StatusCode())
	assert.False(t, profiles[0].IsURIVisitable())
}

func TestProfilingFailedRun(t *testing.T) {
	p, repo := newProfiler(t)
	failure := fmt.Errorf("boom")
	inner := &stubConsole{code: 3, err: failure}

	code, err := console.NewProfiling(inner, p).Run(context.Background(), nil)
	assert.Equal(t, 3, code)
	assert.ErrorIs(t, err, failure)

	profiles := findAll(t, repo)
	require.Len(t, profiles, 1)
	assert.Equal(t, "tool", profiles[0].URI())
	assert.Equal(t, http.StatusInternalServerError, profiles[0].StatusCode())
}

func TestCobra(t *testing.T) {
	var forced bool
	root := &cobra.Command{Use: "tool", SilenceUsage: true, SilenceErrors: true}
	migrate := &cobra.Command{
		Use: "migrate",
		RunE: func(*cobra.Command, []string) error {
			return nil
		},
	}
	migrate.Flags().BoolVar(&forced, "force", false, "")
	fail := &cobra.Command{
		Use: "fail",
		RunE: func(*cobra.Command, []string) error {
			return fmt.Errorf("failed")
		},
	}
	root.AddCommand(migrate, fail)

	c := console.NewCobra(root)
	assert.Equal(t, "tool", c.Name())

	code, err := c.Run(context.Background(), []string{"migrate", "--force"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.True(t, forced)

	code, err = c.Run(context.Background(), []string{"fail"})
	assert.Equal(t, 1, code)
	assert.True(t, errors.HasCode(err, console.ErrCommandFailed))
}

func TestProfilingCobra(t *testing.T) {
	p, repo := newProfiler(t)
	root := &cobra.Command{Use: "tool", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(&cobra.Command{
		Use:  "fail",
		RunE: func(*cobra.Command, []string) error { return fmt.Errorf("failed") },
	})

	code, err := console.NewProfiling(console.NewCobra(root), p).Run(context.Background(), []string{"fail"})
	require.Error(t, err)
	assert.Equal(t, 1, code)

	profiles := findAll(t, repo)
	require.Len(t, profiles, 1)
	assert.Equal(t, "tool fail", profiles[0].URI())
	assert.Equal(t, http.StatusInternalServerError, profiles[0].StatusCode())
}
