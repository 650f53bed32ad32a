package main

import (
	"context"
	"embed"
	"io/fs"
	"net/http"

	"github.com/google/uuid"

	"codeberg.org/mutker/reqprof/internal/app"
	"codeberg.org/mutker/reqprof/internal/event"
	"codeberg.org/mutker/reqprof/internal/logger"
	"codeberg.org/mutker/reqprof/internal/logs"
	"codeberg.org/mutker/reqprof/internal/middleware"
	"codeberg.org/mutker/reqprof/internal/profile"
	"codeberg.org/mutker/reqprof/internal/queue"
	"codeberg.org/mutker/reqprof/internal/storage"
	"codeberg.org/mutker/reqprof/internal/translation"
	"codeberg.org/mutker/reqprof/internal/view"
)

//go:embed templates
var templates embed.FS

const (
	catalogueDB       = "catalogue"
	restockJob        = "restock"
	requestIDHeader   = "X-Request-Id"
	lowStockThreshold = 5
)

// ProductsListed is dispatched after the catalogue has been read.
type ProductsListed struct {
	Count    int
	LowStock int
}

var seedProducts = []storage.Item{
	{"sku": "TEA-001", "name": "Sencha", "stock": 12},
	{"sku": "TEA-002", "name": "Genmaicha", "stock": 3},
	{"sku": "TEA-003", "name": "Hojicha", "stock": 0},
}

// newServices builds the demo application served with the profiler.
func newServices(repo profile.Repository) (*app.Services, error) {
	pages, err := fs.Sub(templates, "templates")
	if err != nil {
		return nil, err
	}

	services, err := app.NewServices(repo, pages)
	if err != nil {
		return nil, err
	}

	db, err := openCatalogue()
	if err != nil {
		return nil, err
	}
	services.Databases.Add(catalogueDB, db).AddDefault("read", catalogueDB)

	services.Assets.Add(view.Asset{File: "/static/catalogue.css", Group: "css"})
	services.Loggers.Add("audit", logs.NewZerolog(logger.Component("audit")))

	services.Middleware.
		Add("request-id", middleware.Func(requestID), 100).
		AddAlias("web", "request-id")

	services.Catalogue.
		Add("en", map[string]string{"catalogue.title": "Tea catalogue", "catalogue.empty": "No products"}).
		Add("de", map[string]string{"catalogue.title": "Teekatalog"})
	services.Translation = translation.Options{Locale: "de", DefaultLocale: "en"}

	event.On(services.Listeners, "flag low stock", func(ctx context.Context, e *ProductsListed) {
		if e.LowStock == 0 {
			return
		}
		scope, ok := app.ScopeFrom(ctx)
		if !ok {
			return
		}
		q, err := scope.Queues.Queue(app.DefaultQueue)
		if err != nil {
			return
		}
		_, _ = q.Push(ctx, &queue.Job{Name: restockJob, Payload: map[string]any{"products": e.LowStock}})
	})

	if err := services.Router.HandleFunc(http.MethodGet, "/", "catalogue.index", catalogueIndex); err != nil {
		return nil, err
	}
	if err := services.Router.HandleFunc(http.MethodGet, "/health", "health", health); err != nil {
		return nil, err
	}
	return services, nil
}

func openCatalogue() (*storage.SQLite, error) {
	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		return nil, err
	}
	if _, err := db.DB().Exec(`CREATE TABLE products (id INTEGER PRIMARY KEY, sku TEXT, name TEXT, stock INTEGER)`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.New().Table("products").InsertItems(context.Background(), seedProducts); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(requestIDHeader, uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

// listProducts reads the catalogue through the scope of the run.
func listProducts(ctx context.Context, scope *app.Scope) ([]storage.Item, error) {
	db, err := scope.Databases.Default("read")
	if err != nil {
		return nil, err
	}
	products, err := db.Table("products").OrderBy("sku", "asc").Get(ctx)
	if err != nil {
		return nil, err
	}

	low := 0
	for _, p := range products {
		if stock, ok := p["stock"].(int64); ok && stock < lowStockThreshold {
			low++
		}
	}

	scope.Logger("").Log(ctx, logs.LevelInfo, "catalogue listed", map[string]any{"products": len(products)})
	if low > 0 {
		scope.Logger("audit").Log(ctx, logs.LevelWarning, "products low on stock", map[string]any{"count": low})
	}
	scope.Dispatcher.Dispatch(ctx, &ProductsListed{Count: len(products), LowStock: low})
	return products, nil
}

func catalogueIndex(w http.ResponseWriter, r *http.Request) {
	scope, ok := app.ScopeFrom(r.Context())
	if !ok {
		http.Error(w, "no scope", http.StatusInternalServerError)
		return
	}

	products, err := listProducts(r.Context(), scope)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if scope.Session != nil {
		scope.Session.Set("last_page", "catalogue")
	}

	page, err := scope.Renderer.Render("pages/catalogue", map[string]any{
		"title":    scope.Translator.Trans("catalogue.title", nil, ""),
		"empty":    scope.Translator.Trans("catalogue.empty", nil, ""),
		"products": products,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
