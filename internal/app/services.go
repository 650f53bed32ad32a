package app

import (
	"io/fs"

	"codeberg.org/mutker/reqprof/internal/boot"
	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/event"
	"codeberg.org/mutker/reqprof/internal/logger"
	"codeberg.org/mutker/reqprof/internal/logs"
	"codeberg.org/mutker/reqprof/internal/middleware"
	"codeberg.org/mutker/reqprof/internal/profile"
	"codeberg.org/mutker/reqprof/internal/queue"
	"codeberg.org/mutker/reqprof/internal/router"
	"codeberg.org/mutker/reqprof/internal/session"
	"codeberg.org/mutker/reqprof/internal/storage"
	"codeberg.org/mutker/reqprof/internal/translation"
	"codeberg.org/mutker/reqprof/internal/view"
)

// DefaultQueue is the name of the queue every application gets.
const DefaultQueue = "default"

// Services holds the long-lived subsystems shared by every request.
// Requests see them through a Scope, wrapped by the profiling collectors.
type Services struct {
	Loggers     *logs.Loggers
	Listeners   *event.Listeners
	Queues      *queue.Queues
	Databases   *storage.Registry
	Middleware  *middleware.Dispatcher
	Router      *router.Router
	Renderer    view.Renderer
	Assets      *view.Assets
	Sessions    *session.Store
	Catalogue   *translation.Catalogue
	Translation translation.Options
	// Missing handles missing translations. Nil passes them through.
	Missing    translation.MissingHandler
	Booter     *boot.Booter
	Repository profile.Repository
}

// NewServices creates the default subsystems. templates are parsed after
// the bundled profiler views.
func NewServices(repo profile.Repository, templates ...fs.FS) (*Services, error) {
	sources := append([]fs.FS{view.ProfilerTemplates()}, templates...)
	renderer, err := view.NewTemplateRenderer(nil, sources...)
	if err != nil {
		return nil, errors.New().Wrap(ErrServicesFailed, err)
	}

	loggers := logs.NewLoggers().
		Add(logs.DefaultName, logs.NewZerolog(logger.Component("app"))).
		Add("null", logs.Null{})

	return &Services{
		Loggers:    loggers,
		Listeners:  event.NewListeners(),
		Queues:     queue.NewQueues(queue.NewMemory(DefaultQueue, 0)),
		Databases:  storage.NewRegistry(),
		Middleware: middleware.NewDispatcher(),
		Router:     router.New(),
		Renderer:   renderer,
		Assets:     view.NewAssets(),
		Sessions:   session.NewStore(""),
		Catalogue:  translation.NewCatalogue(),
		Booter:     boot.NewBooter(),
		Repository: repo,
	}, nil
}
