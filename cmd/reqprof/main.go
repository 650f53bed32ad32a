// Package main provides the reqprof binary: a demo application served
// with the request profiler, plus commands to inspect stored profiles.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"codeberg.org/mutker/reqprof/internal/app"
	"codeberg.org/mutker/reqprof/internal/config"
	"codeberg.org/mutker/reqprof/internal/console"
	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
	"codeberg.org/mutker/reqprof/internal/profile"
)

// runtime is what every subcommand shares once the root command has
// loaded the configuration.
type runtime struct {
	loader *config.ViperLoader
	cfg    *config.Config
	repo   profile.Repository
	app    *app.App
}

func main() {
	rt := &runtime{}
	rootCmd := newRootCmd(rt)

	code, err := rt.run(context.Background(), rootCmd, os.Args[1:])
	rt.close()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

func newRootCmd(rt *runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "reqprof",
		Short:         "Request profiler demo application",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd(rt))
	rootCmd.AddCommand(newProfilesCmd(rt))
	rootCmd.AddCommand(newCatalogueCmd())
	return rootCmd
}

// run loads the configuration, boots the application and runs the
// command tree through it, profiled when console profiling is on.
func (rt *runtime) run(ctx context.Context, rootCmd *cobra.Command, args []string) (int, error) {
	flags, err := configFlags(args)
	if err != nil {
		return 1, err
	}

	if err := rt.init(ctx, flags); err != nil {
		return 1, err
	}

	return rt.app.RunConsole(ctx, console.NewCobra(rootCmd), args)
}

// configFlags parses the configuration flags out of args ahead of the
// command tree, which only knows its own flags once it runs.
func configFlags(args []string) (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet("reqprof", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	config.RegisterFlags(fs)
	fs.BoolP("help", "h", false, "")

	if err := fs.Parse(args); err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
	}
	return fs, nil
}

func (rt *runtime) init(ctx context.Context, flags *pflag.FlagSet) error {
	errFactory := errors.New()

	loader, err := config.NewLoader(config.WithFlags(flags))
	if err != nil {
		return err
	}
	cfg, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Init(logger.Config{Level: level, Pretty: cfg.PrettyLogs})
	logger.Debug().Msg("Config loaded")

	repo, err := profile.NewRepository(profile.Config{
		Driver:          cfg.Storage.Driver,
		Dir:             cfg.Storage.Dir,
		DBPath:          cfg.Storage.DBPath,
		BackupOnMigrate: cfg.Storage.BackupOnMigrate,
		BackupDir:       cfg.Storage.BackupDir,
	}, logger.Get("storage"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	rt.repo = repo

	services, err := newServices(repo)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	a := app.New(cfg, services)
	if err := a.Boot(ctx); err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	rt.loader = loader
	rt.cfg = cfg
	rt.app = a
	return nil
}

func (rt *runtime) close() {
	if rt.app != nil {
		if err := rt.app.Services().Databases.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close databases")
		}
	}
	if closer, ok := rt.repo.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close profile storage")
		}
	}
}
