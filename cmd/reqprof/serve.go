package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
	"codeberg.org/mutker/reqprof/internal/pid"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(rt *runtime) *cobra.Command {
	var pidFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo application with the profiler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.serve(cmd.Context(), pidFile)
		},
	}
	cmd.Flags().StringVar(&pidFile, "pid-file", pid.DefaultPath(), "Path of the pid file")
	return cmd
}

func (rt *runtime) serve(ctx context.Context, pidFile string) error {
	errFactory := errors.New()

	if err := pid.Write(pidFile); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(pidFile); err != nil {
			logger.Error().Err(err).Msg("Failed to remove pid file")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go handleSignals(ctx, cancel)

	go func() {
		if err := rt.app.Watch(ctx, rt.loader); err != nil {
			logger.Warn().Err(err).Msg("Config watch stopped")
		}
	}()

	srv := &http.Server{
		Addr:              rt.cfg.Listen,
		Handler:           rt.app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", srv.Addr).Msg("Serving")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errFactory.Wrap(errors.ErrServe, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}
	logger.Info().Msg("Exiting...")
	return nil
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}
