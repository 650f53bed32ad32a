package app

import (
	"context"

	"codeberg.org/mutker/reqprof/internal/event"
	"codeberg.org/mutker/reqprof/internal/logs"
	"codeberg.org/mutker/reqprof/internal/middleware"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/queue"
	"codeberg.org/mutker/reqprof/internal/session"
	"codeberg.org/mutker/reqprof/internal/storage"
	"codeberg.org/mutker/reqprof/internal/translation"
	"codeberg.org/mutker/reqprof/internal/view"
)

type scopeKey struct{}

// Scope holds the subsystems of one request or console run. When the
// run is profiled they are the collectors' recording adapters.
type Scope struct {
	// Profiler is nil when profiling is disabled.
	Profiler   *profiler.Profiler
	Loggers    logs.Provider
	Dispatcher event.Dispatcher
	Queues     queue.Provider
	Databases  storage.Databases
	Renderer   view.Renderer
	Translator *translation.Translator
	// Session is nil outside of http requests.
	Session *session.Session

	services    *Services
	dispatchers event.DispatcherFactory
	middlewares middleware.Factory
}

func newScope(services *Services, sess *session.Session) *Scope {
	return &Scope{
		Loggers:     services.Loggers,
		Queues:      services.Queues,
		Databases:   services.Databases,
		Renderer:    services.Renderer,
		Translator:  translation.New(services.Catalogue, services.Translation).WithHandler(missingHandler(services)),
		Session:     sess,
		services:    services,
		dispatchers: event.DefaultFactory{},
	}
}

func missingHandler(services *Services) translation.MissingHandler {
	if services.Missing != nil {
		return services.Missing
	}
	return translation.PassThrough{}
}

// Logger returns the named logger of the scope.
func (s *Scope) Logger(name string) logs.Logger {
	return s.Loggers.Logger(name)
}

// Middleware returns the dispatcher running the application middleware.
func (s *Scope) Middleware() *middleware.Dispatcher {
	if s.middlewares == nil {
		return s.services.Middleware
	}
	return s.services.Middleware.WithFactory(s.middlewares)
}

// WithScope stores s in ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the scope of the request or console run.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok
}
