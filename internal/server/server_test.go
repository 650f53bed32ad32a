package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"codeberg.org/mutker/reqprof/internal/collector"
	"codeberg.org/mutker/reqprof/internal/logs"
	"codeberg.org/mutker/reqprof/internal/profile"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/router"
	"codeberg.org/mutker/reqprof/internal/server"
	"codeberg.org/mutker/reqprof/internal/view"
	"github.com/andybalholm/cascadia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type fixture struct {
	repo     *profile.FileRepository
	router   *router.Router
	profiler *profiler.Profiler
	recorder *collector.LogRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo, err := profile.NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)

	renderer, err := view.NewTemplateRenderer(nil, view.ProfilerTemplates())
	require.NoError(t, err)

	recorder := collector.NewLogRecorder()
	p := profiler.New(repo)
	p.AddCollector(collector.NewLogs(recorder))

	rt := router.New()
	_, err = server.Register(rt, server.Options{
		Repository:     repo,
		Renderer:       renderer,
		Profiler:       func(*http.Request) *profiler.Profiler { return p },
		Profiles:       true,
		ToolbarEnabled: true,
	})
	require.NoError(t, err)

	return &fixture{repo: repo, router: rt, profiler: p, recorder: recorder}
}

func (f *fixture) createProfiles(t *testing.T, n int) []*profile.Profile {
	t.Helper()

	profiles := make([]*profile.Profile, 0, n)
	for i := 0; i < n; i++ {
		f.recorder.Record("default", logs.LevelInfo, fmt.Sprintf("request %d", i), nil)
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/page/%d", i), nil)
		prof, err := f.profiler.CreateProfile(context.Background(), req, &profiler.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"text/html"}},
		})
		require.NoError(t, err)
		profiles = append(profiles, prof)
	}
	return profiles
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req.WithContext(router.WithMatch(req.Context())))
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func parse(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func query(t *testing.T, doc *html.Node, selector string) []*html.Node {
	t.Helper()
	sel, err := cascadia.Compile(selector)
	require.NoError(t, err)
	return cascadia.QueryAll(doc, sel)
}

func TestRegisterRoutes(t *testing.T) {
	f := newFixture(t)

	names := make([]string, 0)
	for _, r := range f.router.Routes() {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{
		server.RouteIndex,
		server.RouteShow,
		server.RouteClear,
		server.RouteToolbarProfile,
		server.RouteToolbarProfiles,
		server.RouteAssets,
	}, names)
}

func TestRegisterToolbarOnly(t *testing.T) {
	rt := router.New()
	_, err := server.Register(rt, server.Options{ToolbarEnabled: true})
	require.NoError(t, err)

	assert.True(t, rt.Has(server.RouteToolbarProfile))
	assert.True(t, rt.Has(server.RouteAssets))
	assert.False(t, rt.Has(server.RouteIndex))
}

func TestIndex(t *testing.T) {
	f := newFixture(t)
	f.createProfiles(t, 2)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/profiler/profiles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	doc := parse(t, rec.Body.String())
	links := query(t, doc, `#profiles a.button`)
	require.Len(t, links, 2)
	for _, a := range links {
		assert.Regexp(t, `^/profiler/profiles/[0-9a-f]{100}$`, attr(a, "href"))
	}
	assert.Len(t, query(t, doc, `form[action="/profiler/profiles/clear"]`), 1)
	assert.Empty(t, query(t, doc, `.pagination a`))
}

func TestIndexPagination(t *testing.T) {
	f := newFixture(t)
	f.createProfiles(t, server.PageSize+2)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/profiler/profiles", nil))
	doc := parse(t, rec.Body.String())
	assert.Len(t, query(t, doc, `#profiles a.button`), server.PageSize)
	next := query(t, doc, `.pagination a[rel="next"]`)
	require.Len(t, next, 1)
	assert.Equal(t, "/profiler/profiles?page=2", attr(next[0], "href"))

	rec = f.do(httptest.NewRequest(http.MethodGet, "/profiler/profiles?page=2", nil))
	doc = parse(t, rec.Body.String())
	assert.Len(t, query(t, doc, `#profiles a.button`), 2)
	assert.Len(t, query(t, doc, `.pagination a[rel="prev"]`), 1)
	assert.Empty(t, query(t, doc, `.pagination a[rel="next"]`))
}

func TestShow(t *testing.T) {
	f := newFixture(t)
	prof := f.createProfiles(t, 1)[0]

	rec := f.do(httptest.NewRequest(http.MethodGet, "/profiler/profiles/"+prof.ID(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parse(t, rec.Body.String())
	assert.Len(t, query(t, doc, `#logs`), 1)
	assert.Len(t, query(t, doc, `a[href="/profiler/profiles"]`), 1)
	assert.Contains(t, rec.Body.String(), "request 0")
}

func TestShowNotFound(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"unknown", "bad.id", "id-1"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/profiler/profiles/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	f.createProfiles(t, 3)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/profiler/profiles/clear", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profiler/profiles", rec.Header().Get("Location"))

	all, err := f.repo.FindAll(context.Background(), profile.Query{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func decodeToolbar(t *testing.T, rec *httptest.ResponseRecorder) *html.Node {
	t.Helper()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "profile_html")
	return parse(t, body["profile_html"])
}

func TestToolbarProfile(t *testing.T) {
	f := newFixture(t)
	profiles := f.createProfiles(t, 3)
	selected := profiles[0]

	rec := f.do(postForm("/profiler/toolbar/profile", url.Values{
		"profiler_profile":        {selected.ID()},
		"profiler_profiles_count": {"5"},
	}))
	doc := decodeToolbar(t, rec)

	options := query(t, doc, `select[name="profiler_profile"] option`)
	assert.Len(t, options, 3)
	chosen := query(t, doc, `option[selected]`)
	require.Len(t, chosen, 1)
	assert.Equal(t, selected.ID(), attr(chosen[0], "value"))
	assert.Len(t, query(t, doc, `#profiler-logs`), 1)
}

func TestToolbarProfileClampsCount(t *testing.T) {
	f := newFixture(t)
	profiles := f.createProfiles(t, profiler.MaxToolbarProfiles+5)

	rec := f.do(postForm("/profiler/toolbar/profile", url.Values{
		"profiler_profile":        {profiles[0].ID()},
		"profiler_profiles_count": {"1000"},
	}))
	doc := decodeToolbar(t, rec)
	assert.Len(t, query(t, doc, `select[name="profiler_profile"] option`), profiler.MaxToolbarProfiles+1)
}

func TestToolbarProfileNotFound(t *testing.T) {
	f := newFixture(t)
	f.createProfiles(t, 1)

	rec := f.do(postForm("/profiler/toolbar/profile", url.Values{"profiler_profile": {"missing"}}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestToolbarProfilesFallsBackToNewest(t *testing.T) {
	f := newFixture(t)
	newest := f.createProfiles(t, 1)[0]

	rec := f.do(postForm("/profiler/toolbar/profiles", url.Values{
		"profiler_profile":        {"gone"},
		"profiler_profiles_count": {"5"},
	}))
	doc := decodeToolbar(t, rec)

	chosen := query(t, doc, `option[selected]`)
	require.Len(t, chosen, 1)
	assert.Equal(t, newest.ID(), attr(chosen[0], "value"))
}

func TestToolbarProfilesEmptyRepository(t *testing.T) {
	f := newFixture(t)

	rec := f.do(postForm("/profiler/toolbar/profiles", url.Values{}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssets(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/profiler/assets/profiler/profiler.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "profile_html")
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
