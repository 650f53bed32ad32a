package collector

import (
	"net/http"
	"strconv"
	"sync"

	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/middleware"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/view"
)

// MiddlewareRecorder records middleware runs.
type MiddlewareRecorder struct {
	mu   sync.Mutex
	runs []map[string]any
}

func NewMiddlewareRecorder() *MiddlewareRecorder {
	return &MiddlewareRecorder{}
}

func (r *MiddlewareRecorder) Add(run map[string]any) {
	r.mu.Lock()
	r.runs = append(r.runs, run)
	r.mu.Unlock()
}

func (r *MiddlewareRecorder) All() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.runs...)
}

// MiddlewareFactory is a middleware.Factory recording the request seen
// before and the response produced after every middleware.
type MiddlewareFactory struct {
	recorder *MiddlewareRecorder
}

func NewMiddlewareFactory(recorder *MiddlewareRecorder) *MiddlewareFactory {
	return &MiddlewareFactory{recorder: recorder}
}

func (f *MiddlewareFactory) Create(entry middleware.Entry) middleware.Middleware {
	return middleware.Func(func(next http.Handler) http.Handler {
		inner := entry.Middleware.Wrap(next)
		priority := strconv.Itoa(entry.Priority)
		name := entry.Name
		kind := dump.Type(entry.Middleware)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.recorder.Add(map[string]any{
				"process":    "before",
				"priority":   priority,
				"name":       name,
				"middleware": kind,
				"data":       dump.HTML(dump.Request(r)),
			})

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			inner.ServeHTTP(sw, r)

			f.recorder.Add(map[string]any{
				"process":    "after",
				"priority":   priority,
				"name":       name,
				"middleware": kind,
				"data":       dump.HTML(dump.Response(sw.status, w.Header())),
			})
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// AliasSource lists middleware aliases.
type AliasSource interface {
	Aliases() map[string]string
}

// Middleware shows the dispatched middleware and the registered aliases.
type Middleware struct {
	recorder *MiddlewareRecorder
	aliases  AliasSource
}

// NewMiddleware creates the collector. aliases may be nil.
func NewMiddleware(recorder *MiddlewareRecorder, aliases AliasSource) *Middleware {
	return &Middleware{recorder: recorder, aliases: aliases}
}

func (c *Middleware) Name() string { return MiddlewareName }

func (c *Middleware) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	data := map[string]any{}

	if runs := c.recorder.All(); len(runs) > 0 {
		data["middlewares"] = runs
	}

	if c.aliases != nil {
		aliases := c.aliases.Aliases()
		if len(aliases) > 0 {
			rows := make([]map[string]any, 0, len(aliases))
			for _, alias := range sortedKeys(aliases) {
				rows = append(rows, map[string]any{"alias": alias, "middleware": aliases[alias]})
			}
			data["aliases"] = rows
		}
	}

	return data, nil
}

func (c *Middleware) Render(r view.Renderer, data map[string]any) (string, error) {
	return renderTables(r,
		&view.Table{
			Rows:    view.Rows(data["middlewares"]),
			Title:   "Dispatched Middleware",
			Columns: []string{"process", "priority", "name", "middleware", "data"},
			HTML:    []string{"data"},
		},
		&view.Table{
			Rows:    view.Rows(data["aliases"]),
			Title:   "Middleware Aliases",
			Columns: []string{"alias", "middleware"},
		},
	)
}

func (c *Middleware) Data(map[string]any) profiler.Summary {
	return profiler.Summary{}
}
