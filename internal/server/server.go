// Package server provides the profile browser and the toolbar endpoints.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
	"codeberg.org/mutker/reqprof/internal/profile"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/router"
	"codeberg.org/mutker/reqprof/internal/view"
)

const (
	RouteIndex           = "profiler.profiles.index"
	RouteShow            = "profiler.profiles.show"
	RouteClear           = "profiler.profiles.clear"
	RouteToolbarProfile  = "profiler.toolbar.profile"
	RouteToolbarProfiles = "profiler.toolbar.profiles"
	RouteAssets          = "profiler.assets"

	// PageSize is the number of profiles per browser page.
	PageSize = 50

	formProfile = "profiler_profile"
	formCount   = "profiler_profiles_count"
)

type Options struct {
	Repository profile.Repository
	Renderer   view.Renderer
	// Profiler returns the profiler whose collectors render the panels
	// for r. A nil result falls back to a profiler without collectors.
	Profiler func(r *http.Request) *profiler.Profiler
	Toolbar  profiler.ToolbarOptions
	// Profiles enables the profile browser.
	Profiles bool
	// ToolbarEnabled enables the toolbar endpoints.
	ToolbarEnabled bool
}

// Server serves the profiler's own routes.
type Server struct {
	opts    Options
	router  *router.Router
	toolbar *profiler.Toolbar
	logger  logger.Logger
}

// Register adds the enabled profiler routes to rt.
func Register(rt *router.Router, opts Options) (*Server, error) {
	s := &Server{
		opts:    opts,
		router:  rt,
		toolbar: profiler.NewToolbar(opts.Renderer, opts.Toolbar),
		logger:  logger.Get("server"),
	}

	type route struct {
		method, path, name string
		handler            http.HandlerFunc
	}

	var routes []route
	if opts.Profiles {
		routes = append(routes,
			route{http.MethodGet, "/profiler/profiles", RouteIndex, s.index},
			route{http.MethodGet, "/profiler/profiles/:id", RouteShow, s.show},
			route{http.MethodPost, "/profiler/profiles/clear", RouteClear, s.clear},
		)
	}
	if opts.ToolbarEnabled {
		routes = append(routes,
			route{http.MethodPost, "/profiler/toolbar/profile", RouteToolbarProfile, s.toolbarProfile},
			route{http.MethodPost, "/profiler/toolbar/profiles", RouteToolbarProfiles, s.toolbarProfiles},
		)
	}
	if opts.Profiles || opts.ToolbarEnabled {
		routes = append(routes, route{http.MethodGet, "/profiler/assets/*filepath", RouteAssets, s.assets()})
	}

	for _, r := range routes {
		if err := rt.HandleFunc(r.method, r.path, r.name, r.handler); err != nil {
			return nil, errors.New().Wrap(ErrRegisterFailed, err)
		}
	}

	s.logger.Debug().Int("routes", len(routes)).Msg("Registered profiler routes")
	return s, nil
}

func (s *Server) profiler(r *http.Request) *profiler.Profiler {
	if s.opts.Profiler != nil {
		if p := s.opts.Profiler(r); p != nil {
			return p
		}
	}
	return profiler.New(s.opts.Repository)
}

func (s *Server) url(name string, params ...string) string {
	u, err := s.router.URL(name, params...)
	if err != nil {
		s.logger.Warn().Err(err).Str("route", name).Msg("Failed to build route url")
		return ""
	}
	return u
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	profiles, err := s.opts.Repository.FindAll(r.Context(), profile.Query{
		Limit: &profile.Limit{Count: PageSize + 1, Offset: (page - 1) * PageSize},
	})
	if err != nil {
		s.fail(w, err, "Failed to list profiles")
		return
	}

	hasNext := len(profiles) > PageSize
	if hasNext {
		profiles = profiles[:PageSize]
	}

	views := profiler.ProfileViews(profiles)
	for i := range views {
		views[i].ShowURL = s.url(RouteShow, "id", views[i].ID)
	}

	indexURL := s.url(RouteIndex)
	data := map[string]any{
		"profiles":    views,
		"clearAction": s.url(RouteClear),
		"assetsPath":  s.toolbarOptions().AssetsPath,
		"prevURL":     "",
		"nextURL":     "",
	}
	if page > 1 {
		data["prevURL"] = indexURL + "?page=" + strconv.Itoa(page-1)
	}
	if hasNext {
		data["nextURL"] = indexURL + "?page=" + strconv.Itoa(page+1)
	}

	s.render(w, view.IndexView, data)
}

func (s *Server) show(w http.ResponseWriter, r *http.Request) {
	p := s.profiler(r)

	prof, err := p.FindProfile(r.Context(), router.Param(r, "id"))
	if err != nil {
		s.fail(w, err, "Failed to read profile")
		return
	}
	if prof == nil {
		http.NotFound(w, r)
		return
	}

	s.render(w, view.ProfileView, map[string]any{
		"indexURL":   s.url(RouteIndex),
		"profile":    profiler.NewProfileView(prof),
		"panels":     p.Panels(prof, s.opts.Renderer),
		"assetsPath": s.toolbarOptions().AssetsPath,
	})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Repository.Clear(r.Context()); err != nil {
		s.fail(w, err, "Failed to clear profiles")
		return
	}
	http.Redirect(w, r, s.url(RouteIndex), http.StatusSeeOther)
}

// toolbarProfile renders the toolbar for the posted profile.
func (s *Server) toolbarProfile(w http.ResponseWriter, r *http.Request) {
	p := s.profiler(r)

	prof, err := p.FindProfile(r.Context(), r.PostFormValue(formProfile))
	if err != nil {
		s.fail(w, err, "Failed to read profile")
		return
	}
	if prof == nil {
		writeJSON(w, http.StatusNotFound, []any{})
		return
	}

	s.writeToolbar(w, r, p, prof)
}

// toolbarProfiles re-renders the toolbar after new profiles may have
// been created. The posted profile stays selected when it still exists.
func (s *Server) toolbarProfiles(w http.ResponseWriter, r *http.Request) {
	p := s.profiler(r)

	prof, err := p.FindProfile(r.Context(), r.PostFormValue(formProfile))
	if err != nil {
		s.fail(w, err, "Failed to read profile")
		return
	}
	if prof == nil {
		newest, err := s.opts.Repository.FindAll(r.Context(), profile.Query{Limit: &profile.Limit{Count: 1}})
		if err != nil {
			s.fail(w, err, "Failed to list profiles")
			return
		}
		if len(newest) == 0 {
			writeJSON(w, http.StatusNotFound, []any{})
			return
		}
		prof = newest[0]
	}

	s.writeToolbar(w, r, p, prof)
}

func (s *Server) writeToolbar(w http.ResponseWriter, r *http.Request, p *profiler.Profiler, prof *profile.Profile) {
	count := profilesCount(r.PostFormValue(formCount))

	profiles, err := s.opts.Repository.FindAll(r.Context(), profile.Query{
		Limit: &profile.Limit{Count: count + 1},
	})
	if err != nil {
		s.fail(w, err, "Failed to list profiles")
		return
	}

	html, err := s.toolbar.Render(p, prof, profiles)
	if err != nil {
		s.fail(w, err, "Failed to render toolbar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"profile_html": html})
}

// profilesCount parses the client's count hint, clamped to
// [0, profiler.MaxToolbarProfiles].
func profilesCount(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	if n > profiler.MaxToolbarProfiles {
		return profiler.MaxToolbarProfiles
	}
	return n
}

func (s *Server) assets() http.HandlerFunc {
	files := http.StripPrefix("/profiler/assets", http.FileServer(http.FS(view.ProfilerAssets())))
	return files.ServeHTTP
}

func (s *Server) toolbarOptions() profiler.ToolbarOptions {
	opts := s.opts.Toolbar
	if opts.AssetsPath == "" {
		opts.AssetsPath = profiler.DefaultAssetsPath
	}
	return opts
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]any) {
	html, err := s.opts.Renderer.Render(name, data)
	if err != nil {
		s.fail(w, errors.New().Wrap(ErrRenderFailed, err), "Failed to render view")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (s *Server) fail(w http.ResponseWriter, err error, msg string) {
	s.logger.Error().Err(err).Msg(msg)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
