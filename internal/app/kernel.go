package app

import (
	"net/http"

	"codeberg.org/mutker/reqprof/internal/logger"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/router"
	"codeberg.org/mutker/reqprof/internal/session"
)

// Kernel serves requests through session, middleware and router. While
// profiling is enabled the response is buffered, profiled and given the
// toolbar.
type Kernel struct {
	app    *App
	logger logger.Logger
}

func (k *Kernel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := k.app.Config()
	services := k.app.services

	sess := services.Sessions.Load(r)
	http.SetCookie(w, services.Sessions.Cookie(sess))
	defer services.Sessions.Save(sess)

	scope, err := k.app.NewScope(sess, cfg.Enabled)
	if err != nil {
		k.logger.Error().Err(err).Msg("Failed to create request scope")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	ctx := router.WithMatch(r.Context())
	ctx = session.WithSession(ctx, sess)
	ctx = WithScope(ctx, scope)
	r = r.WithContext(ctx)

	var h http.Handler = scope.Middleware().Handler(services.Router)
	if scope.Profiler != nil {
		handler := profiler.NewResponseHandler(scope.Profiler, profiler.HandlerOptions{
			Toolbar:        profiler.NewToolbar(services.Renderer, profiler.ToolbarOptions{}),
			ToolbarEnabled: cfg.Toolbar,
			Unprofiled:     cfg.IsUnprofiledRoute,
		})
		h = profiler.Middleware(handler, router.RouteName)(h)
	}

	h.ServeHTTP(w, r)
}
