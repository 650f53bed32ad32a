package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteNameAndParams(t *testing.T) {
	rt := router.New()
	require.NoError(t, rt.HandleFunc(http.MethodGet, "/blog/:slug", "blog.show", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(router.Param(r, "slug")))
	}))

	req := httptest.NewRequest(http.MethodGet, "/blog/hello", nil)
	req = req.WithContext(router.WithMatch(req.Context()))
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "blog.show", router.RouteName(req))
}

func TestRouteNameUnmatched(t *testing.T) {
	rt := router.New()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req = req.WithContext(router.WithMatch(req.Context()))
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, router.RouteName(req))
	assert.Empty(t, router.RouteName(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestURL(t *testing.T) {
	rt := router.New()
	require.NoError(t, rt.Handle(http.MethodGet, "/profiles/:id", "profiles.show", http.NotFoundHandler()))
	require.NoError(t, rt.Handle(http.MethodGet, "/assets/*filepath", "assets", http.NotFoundHandler()))

	u, err := rt.URL("profiles.show", "id", "abc")
	require.NoError(t, err)
	assert.Equal(t, "/profiles/abc", u)

	u, err = rt.URL("assets", "filepath", "/app/main.css")
	require.NoError(t, err)
	assert.Equal(t, "/assets/app/main.css", u)

	_, err = rt.URL("profiles.show")
	assert.True(t, errors.HasCode(err, router.ErrMissingParam))
	_, err = rt.URL("nope")
	assert.True(t, errors.HasCode(err, router.ErrRouteNotFound))
}

func TestRoutes(t *testing.T) {
	rt := router.New()
	require.NoError(t, rt.Handle(http.MethodGet, "/", "home", http.NotFoundHandler()))
	require.NoError(t, rt.Handle(http.MethodPost, "/form", "", http.NotFoundHandler()))

	err := rt.Handle(http.MethodGet, "/other", "home", http.NotFoundHandler())
	assert.True(t, errors.HasCode(err, router.ErrDuplicateRoute))

	routes := rt.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, router.Route{Method: "GET", Path: "/", Name: "home", Handler: "http.HandlerFunc"}, routes[0])
	assert.True(t, rt.Has("home"))
}
