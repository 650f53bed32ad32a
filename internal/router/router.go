// Package router dispatches requests to named routes.
package router

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/errors"
	"github.com/julienschmidt/httprouter"
)

// Route is a registered route.
type Route struct {
	Method  string
	Path    string
	Name    string
	Handler string
}

type match struct {
	name string
}

type ctxKey struct{}

// Router wraps httprouter with route names.
type Router struct {
	hr *httprouter.Router

	mu     sync.RWMutex
	routes []Route
	names  map[string]int
}

func New() *Router {
	hr := httprouter.New()
	hr.HandleMethodNotAllowed = false
	return &Router{hr: hr, names: make(map[string]int)}
}

// Handle registers h for method and path under name. Names are unique;
// an empty name leaves the route anonymous.
func (rt *Router) Handle(method, path, name string, h http.Handler) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if name != "" {
		if _, ok := rt.names[name]; ok {
			return errors.New().WithData(ErrDuplicateRoute, struct {
				Name string
			}{
				Name: name,
			})
		}
		rt.names[name] = len(rt.routes)
	}

	rt.routes = append(rt.routes, Route{
		Method:  method,
		Path:    path,
		Name:    name,
		Handler: dump.Type(h),
	})

	rt.hr.Handler(method, path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m, ok := r.Context().Value(ctxKey{}).(*match); ok {
			m.name = name
		}
		h.ServeHTTP(w, r)
	}))
	return nil
}

func (rt *Router) HandleFunc(method, path, name string, fn http.HandlerFunc) error {
	return rt.Handle(method, path, name, fn)
}

// Routes returns the routes in registration order.
func (rt *Router) Routes() []Route {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make([]Route, len(rt.routes))
	copy(out, rt.routes)
	return out
}

func (rt *Router) Has(name string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	_, ok := rt.names[name]
	return ok
}

// URL builds the path of a named route. params alternate key and value.
func (rt *Router) URL(name string, params ...string) (string, error) {
	errFactory := errors.New()

	rt.mu.RLock()
	i, ok := rt.names[name]
	var path string
	if ok {
		path = rt.routes[i].Path
	}
	rt.mu.RUnlock()

	if !ok {
		return "", errFactory.WithData(ErrRouteNotFound, struct {
			Name string
		}{
			Name: name,
		})
	}

	values := make(map[string]string, len(params)/2)
	for j := 0; j+1 < len(params); j += 2 {
		values[params[j]] = params[j+1]
	}

	segments := strings.Split(path, "/")
	for j, seg := range segments {
		if seg == "" || (seg[0] != ':' && seg[0] != '*') {
			continue
		}
		v, ok := values[seg[1:]]
		if !ok {
			return "", errFactory.WithData(ErrMissingParam, struct {
				Name  string
				Param string
			}{
				Name:  name,
				Param: seg[1:],
			})
		}
		segments[j] = strings.TrimPrefix(v, "/")
	}
	return strings.Join(segments, "/"), nil
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.hr.ServeHTTP(w, r)
}

// WithMatch prepares ctx to receive the name of the route that serves it.
func WithMatch(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, &match{})
}

// RouteName returns the name of the route that served r, if any.
func RouteName(r *http.Request) string {
	if m, ok := r.Context().Value(ctxKey{}).(*match); ok {
		return m.name
	}
	return ""
}

// Param returns a path parameter of the matched route.
func Param(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}
