package collector

import (
	"net/http"

	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/router"
	"codeberg.org/mutker/reqprof/internal/view"
)

// RouteSource lists registered routes.
type RouteSource interface {
	Routes() []router.Route
}

// Routes shows the registered routes.
type Routes struct {
	routes RouteSource
}

// NewRoutes creates the collector. routes may be nil.
func NewRoutes(routes RouteSource) *Routes {
	return &Routes{routes: routes}
}

func (c *Routes) Name() string { return RoutesName }

func (c *Routes) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	if c.routes == nil {
		return map[string]any{}, nil
	}

	routes := c.routes.Routes()
	if len(routes) == 0 {
		return map[string]any{}, nil
	}

	rows := make([]map[string]any, 0, len(routes))
	for _, rt := range routes {
		rows = append(rows, map[string]any{
			"method":  rt.Method,
			"uri":     rt.Path,
			"name":    rt.Name,
			"handler": rt.Handler,
		})
	}
	return map[string]any{"routes": rows}, nil
}

func (c *Routes) Render(r view.Renderer, data map[string]any) (string, error) {
	return renderTables(r, &view.Table{
		Rows:    view.Rows(data["routes"]),
		Title:   "Routes",
		Columns: []string{"method", "uri", "name", "handler"},
	})
}

func (c *Routes) Data(data map[string]any) profiler.Summary {
	return countSummary(count(data["routes"]), "%d routes registered")
}
