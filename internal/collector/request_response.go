package collector

import (
	"fmt"
	"net/http"
	"time"

	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/view"
)

// RequestResponse shows the request, the response and the time spent
// since the collector was created.
type RequestResponse struct {
	start time.Time
	now   func() time.Time
}

func NewRequestResponse() *RequestResponse {
	return &RequestResponse{start: time.Now(), now: time.Now}
}

func (c *RequestResponse) Name() string { return RequestResponseName }

func (c *RequestResponse) Collect(r *http.Request, resp *profiler.Response) (map[string]any, error) {
	items := []map[string]any{}

	if r != nil {
		items = append(items, map[string]any{"name": "Request", "value": dump.HTML(dump.Request(r))})
	}
	if resp != nil {
		items = append(items, map[string]any{"name": "Response", "value": dump.HTML(dump.Response(resp.StatusCode, resp.Header))})
	}

	elapsed := c.now().Sub(c.start)
	items = append(items, map[string]any{
		"name":  "Total Execution time",
		"value": fmt.Sprintf("%.2f ms", float64(elapsed.Nanoseconds())/1e6),
	})

	return map[string]any{"items": items}, nil
}

func (c *RequestResponse) Render(r view.Renderer, data map[string]any) (string, error) {
	return renderTables(r, &view.Table{
		Rows:    view.Rows(data["items"]),
		Title:   "Request / Response",
		Columns: []string{"name", "value"},
		HTML:    []string{"value"},
	})
}

func (c *RequestResponse) Data(map[string]any) profiler.Summary {
	return profiler.Summary{}
}
