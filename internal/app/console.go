package app

import (
	"context"

	"codeberg.org/mutker/reqprof/internal/console"
)

// RunConsole runs c in a fresh scope, stored in ctx. The run is
// recorded as a profile when console profiling is enabled.
func (a *App) RunConsole(ctx context.Context, c console.Console, args []string) (int, error) {
	cfg := a.Config()

	scope, err := a.NewScope(nil, cfg.Enabled && cfg.Console)
	if err != nil {
		return 1, err
	}

	if scope.Profiler != nil {
		c = console.NewProfiling(c, scope.Profiler)
	}
	return c.Run(WithScope(ctx, scope), args)
}
