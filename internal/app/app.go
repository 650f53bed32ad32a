// Package app wires the profiler into the application subsystems.
package app

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/reqprof/internal/boot"
	"codeberg.org/mutker/reqprof/internal/config"
	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/server"
	"codeberg.org/mutker/reqprof/internal/session"
)

const (
	BootProfiler     = "profiler"
	BootProfilerLate = "profiler.late"

	bootPriority = 1000
	latePriority = -1000000
)

// App owns the services and the configured collectors.
type App struct {
	services *Services
	cfg      atomic.Pointer[config.Config]
	opts     []profiler.Option

	mu        sync.RWMutex
	immediate []resolved
	late      []resolved
	booted    bool

	logger logger.Logger
}

// New creates the application and registers its boots on the services'
// booter. opts apply to every profiler it creates.
func New(cfg *config.Config, services *Services, opts ...profiler.Option) *App {
	a := &App{
		services: services,
		opts:     opts,
		logger:   logger.Get("app"),
	}
	a.cfg.Store(cfg)

	services.Booter.Register(
		boot.New(BootProfiler, bootPriority, a.bootProfiler, "resolves the immediate collectors"),
		boot.New(BootProfilerLate, latePriority, a.bootLate, "resolves the late collectors", "registers the profiler routes"),
	)
	return a
}

func (a *App) Services() *Services {
	return a.services
}

// Config returns the current configuration.
func (a *App) Config() *config.Config {
	return a.cfg.Load()
}

// SetConfig swaps the configuration. Collectors and routes are resolved
// at boot and do not change.
func (a *App) SetConfig(cfg *config.Config) {
	a.cfg.Store(cfg)
	a.logger.Debug().
		Bool("enabled", cfg.Enabled).
		Bool("toolbar", cfg.Toolbar).
		Msg("Configuration swapped")
}

// Watch applies configuration changes until ctx is done.
func (a *App) Watch(ctx context.Context, w config.Watcher) error {
	return w.Watch(ctx, a.SetConfig)
}

// Boot runs every registered boot once.
func (a *App) Boot(ctx context.Context) error {
	return a.services.Booter.Boot(ctx)
}

func (a *App) bootProfiler(context.Context) error {
	immediate, err := resolveCollectors(a.Config().Collectors, false)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.immediate = immediate
	a.mu.Unlock()
	return nil
}

func (a *App) bootLate(context.Context) error {
	cfg := a.Config()

	late, err := resolveCollectors(cfg.Collectors, true)
	if err != nil {
		return err
	}

	if cfg.Profiles || cfg.Toolbar {
		_, err := server.Register(a.services.Router, server.Options{
			Repository: a.services.Repository,
			Renderer:   a.services.Renderer,
			Profiler: func(r *http.Request) *profiler.Profiler {
				if s, ok := ScopeFrom(r.Context()); ok {
					return s.Profiler
				}
				return nil
			},
			Profiles:       cfg.Profiles,
			ToolbarEnabled: cfg.Toolbar,
		})
		if err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.late = late
	a.booted = true
	a.mu.Unlock()

	a.logger.Info().
		Int("immediate", len(a.immediate)).
		Int("late", len(late)).
		Msg("Profiler booted")
	return nil
}

// NewScope creates the subsystems of one run. When profiled, a fresh
// profiler gets every configured collector, immediate ones first.
func (a *App) NewScope(sess *session.Session, profiled bool) (*Scope, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.booted {
		return nil, errors.New().New(ErrNotBooted)
	}

	s := newScope(a.services, sess)
	if profiled {
		s.Profiler = profiler.New(a.services.Repository, a.opts...)
		for _, group := range [][]resolved{a.immediate, a.late} {
			for _, r := range group {
				s.Profiler.AddCollector(r.factory.create(s, r.options))
			}
		}
	}

	s.Dispatcher = s.dispatchers.NewDispatcher(a.services.Listeners)
	return s, nil
}

// Handler returns the http entry point of the application.
func (a *App) Handler() http.Handler {
	return &Kernel{app: a, logger: logger.Get("kernel")}
}
