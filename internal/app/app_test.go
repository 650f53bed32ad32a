package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"codeberg.org/mutker/reqprof/internal/app"
	"codeberg.org/mutker/reqprof/internal/boot"
	"codeberg.org/mutker/reqprof/internal/config"
	"codeberg.org/mutker/reqprof/internal/console"
	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/event"
	"codeberg.org/mutker/reqprof/internal/logs"
	"codeberg.org/mutker/reqprof/internal/profile"
	"codeberg.org/mutker/reqprof/internal/server"
	"codeberg.org/mutker/reqprof/internal/storage"
	"github.com/andybalholm/cascadia"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type productsListed struct {
	Count int
}

const homeTemplate = `<!DOCTYPE html><html><head><title>{{.title}}</title></head><body><h1>{{.title}}</h1></body></html>`

func newConfig() *config.Config {
	return &config.Config{
		Enabled:              true,
		Profiles:             true,
		Toolbar:              true,
		Collectors:           config.DefaultCollectors(),
		UnprofiledRouteNames: append(config.DefaultUnprofiledRouteNames(), "health"),
	}
}

type testApp struct {
	app      *app.App
	repo     *profile.FileRepository
	handler  http.Handler
	received []int
}

func newApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()

	repo, err := profile.NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)

	services, err := app.NewServices(repo, fstest.MapFS{
		"pages/home.tmpl": {Data: []byte(homeTemplate)},
	})
	require.NoError(t, err)

	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.DB().Exec(`CREATE TABLE products (id INTEGER PRIMARY KEY, sku TEXT)`)
	require.NoError(t, err)
	services.Databases.Add("main", db)

	ta := &testApp{repo: repo}

	event.On(services.Listeners, "count products", func(_ context.Context, e *productsListed) {
		ta.received = append(ta.received, e.Count)
	})

	require.NoError(t, services.Router.HandleFunc(http.MethodGet, "/products", "products.index", func(w http.ResponseWriter, r *http.Request) {
		scope, ok := app.ScopeFrom(r.Context())
		require.True(t, ok)

		st, err := scope.Databases.Get("main")
		require.NoError(t, err)
		items, err := st.Table("products").Get(r.Context())
		require.NoError(t, err)

		scope.Logger("").Log(r.Context(), logs.LevelInfo, "listed products", map[string]any{"count": len(items)})
		scope.Dispatcher.Dispatch(r.Context(), &productsListed{Count: len(items)})
		if scope.Session != nil {
			scope.Session.Set("visited", "products")
		}

		page, err := scope.Renderer.Render("pages/home", map[string]any{"title": "Products"})
		require.NoError(t, err)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))

	require.NoError(t, services.Router.HandleFunc(http.MethodGet, "/health", "health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))

	require.NoError(t, services.Router.HandleFunc(http.MethodGet, "/flash", "flash", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "flash", Value: "saved"})
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head></head><body>saved</body></html>"))
	}))

	ta.app = app.New(cfg, services)
	require.NoError(t, ta.app.Boot(context.Background()))
	ta.handler = ta.app.Handler()
	return ta
}

func (ta *testApp) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (ta *testApp) profiles(t *testing.T) []*profile.Profile {
	t.Helper()
	all, err := ta.repo.FindAll(context.Background(), profile.Query{})
	require.NoError(t, err)
	return all
}

func query(t *testing.T, body, selector string) []*html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)
	sel, err := cascadia.Compile(selector)
	require.NoError(t, err)
	return cascadia.QueryAll(doc, sel)
}

func TestProfiledRequest(t *testing.T) {
	ta := newApp(t, newConfig())

	rec := ta.get("/products")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{0}, ta.received)

	profiles := ta.profiles(t)
	require.Len(t, profiles, 1)
	prof := profiles[0]
	assert.Equal(t, http.MethodGet, prof.Method())
	assert.Equal(t, "/products", prof.URI())
	assert.Equal(t, http.StatusOK, prof.StatusCode())

	for _, name := range []string{"Logs", "Events", "Storage Queries", "View", "Session", "Routes", "Boots", "Request / Response"} {
		data, ok := prof.Collected(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, data, name)
	}

	body := rec.Body.String()
	assert.Len(t, query(t, body, `head link[href="/profiler/assets/profiler/profiler.css"]`), 1)
	assert.Len(t, query(t, body, `body > #profiler`), 1)
	for _, id := range []string{"logs", "events", "storage-queries"} {
		assert.Len(t, query(t, body, `#profiler-head a[href="#profiler-`+id+`"]`), 1, id)
		assert.Len(t, query(t, body, `#profiler-`+id), 1, id)
	}
	assert.Contains(t, body, "listed products")
	assert.Contains(t, body, `SELECT * FROM &#34;products&#34;`)

	var sessionCookie bool
	for _, c := range rec.Result().Cookies() {
		sessionCookie = sessionCookie || c.Name == "reqprof_session"
	}
	assert.True(t, sessionCookie)
}

func TestExcludedRouteIsNotProfiled(t *testing.T) {
	ta := newApp(t, newConfig())

	rec := ta.get("/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html><body>ok</body></html>", rec.Body.String())
	assert.Empty(t, ta.profiles(t))
}

func TestSequentialRequests(t *testing.T) {
	ta := newApp(t, newConfig())

	ta.get("/products?first=1")
	ta.get("/products?second=1")

	profiles := ta.profiles(t)
	require.Len(t, profiles, 2)
	assert.NotEqual(t, profiles[0].ID(), profiles[1].ID())
	assert.Equal(t, "/products?second=1", profiles[0].URI())
	assert.Equal(t, "/products?first=1", profiles[1].URI())
}

func cookieNames(rec *httptest.ResponseRecorder) []string {
	var names []string
	for _, c := range rec.Result().Cookies() {
		names = append(names, c.Name)
	}
	return names
}

func TestHandlerCookiesKeptWhenProfiling(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		cfg := newConfig()
		cfg.Enabled = enabled
		ta := newApp(t, cfg)

		rec := ta.get("/flash")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.ElementsMatch(t, []string{"reqprof_session", "flash"}, cookieNames(rec), "enabled=%v", enabled)
		if enabled {
			assert.Len(t, ta.profiles(t), 1)
		}
	}
}

func TestDisabled(t *testing.T) {
	cfg := newConfig()
	cfg.Enabled = false
	ta := newApp(t, cfg)

	rec := ta.get("/products")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, query(t, rec.Body.String(), `#profiler`))
	assert.Empty(t, ta.profiles(t))
	assert.Equal(t, []int{0}, ta.received)
}

func TestSetConfigDisablesToolbar(t *testing.T) {
	ta := newApp(t, newConfig())

	cfg := newConfig()
	cfg.Toolbar = false
	ta.app.SetConfig(cfg)

	rec := ta.get("/products")
	assert.Empty(t, query(t, rec.Body.String(), `#profiler`))
	assert.Len(t, ta.profiles(t), 1)
}

func TestProfilerRoutesAreNotProfiled(t *testing.T) {
	ta := newApp(t, newConfig())
	ta.get("/products")
	prof := ta.profiles(t)[0]

	rec := ta.get("/profiler/profiles")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, query(t, rec.Body.String(), `#profiles a.button`), 1)

	rec = ta.get("/profiler/profiles/" + prof.ID())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, query(t, rec.Body.String(), `#storage-queries`), 1)

	form := url.Values{"profiler_profile": {prof.ID()}, "profiler_profiles_count": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/profiler/toolbar/profile", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "profile_html")

	assert.Len(t, ta.profiles(t), 1)
}

func TestBootRegistersProfilerBoots(t *testing.T) {
	ta := newApp(t, newConfig())

	booted := ta.app.Services().Booter.Booted()
	require.Len(t, booted, 2)
	assert.Equal(t, app.BootProfiler, booted[0].Name)
	assert.Equal(t, app.BootProfilerLate, booted[1].Name)
	assert.True(t, ta.app.Services().Router.Has(server.RouteToolbarProfile))
}

func TestBootUnknownCollector(t *testing.T) {
	repo, err := profile.NewFileRepository(t.TempDir(), nil)
	require.NoError(t, err)
	services, err := app.NewServices(repo)
	require.NoError(t, err)

	cfg := newConfig()
	cfg.Collectors = []config.CollectorSpec{{Name: "bogus"}}
	a := app.New(cfg, services)

	err = a.Boot(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, boot.ErrBootFailed))
	assert.Contains(t, err.Error(), "bogus")

	_, err = a.NewScope(nil, true)
	assert.True(t, errors.HasCode(err, app.ErrNotBooted))
}

func TestNewScopeWithoutProfiling(t *testing.T) {
	ta := newApp(t, newConfig())

	scope, err := ta.app.NewScope(nil, false)
	require.NoError(t, err)
	assert.Nil(t, scope.Profiler)
	assert.Same(t, ta.app.Services().Loggers, scope.Loggers)

	scope, err = ta.app.NewScope(nil, true)
	require.NoError(t, err)
	require.NotNil(t, scope.Profiler)
	assert.Len(t, scope.Profiler.Collectors(), len(config.DefaultCollectors()))
	assert.Equal(t, "Logs", scope.Profiler.Collectors()[0].Name())
	assert.Equal(t, "Jobs", scope.Profiler.Collectors()[5].Name())
}

func importCommand(t *testing.T) *cobra.Command {
	t.Helper()
	root := &cobra.Command{Use: "shop", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(&cobra.Command{
		Use: "import",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, ok := app.ScopeFrom(cmd.Context())
			require.True(t, ok)
			scope.Logger("").Log(cmd.Context(), logs.LevelInfo, "imported products", map[string]any{"files": len(args)})
			return nil
		},
	})
	return root
}

func TestRunConsoleProfiled(t *testing.T) {
	cfg := newConfig()
	cfg.Console = true
	ta := newApp(t, cfg)

	code, err := ta.app.RunConsole(context.Background(), console.NewCobra(importCommand(t)), []string{"import", "a.csv"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	profiles := ta.profiles(t)
	require.Len(t, profiles, 1)
	assert.Equal(t, console.BatchMethod, profiles[0].Method())
	assert.Equal(t, "shop import a.csv", profiles[0].URI())
	assert.Equal(t, http.StatusOK, profiles[0].StatusCode())

	data, ok := profiles[0].Collected("Logs")
	require.True(t, ok)
	assert.NotEmpty(t, data)
}

func TestRunConsoleNotProfiled(t *testing.T) {
	ta := newApp(t, newConfig())

	code, err := ta.app.RunConsole(context.Background(), console.NewCobra(importCommand(t)), []string{"import"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Empty(t, ta.profiles(t))
}
