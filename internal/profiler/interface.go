package profiler

import (
	"net/http"

	"codeberg.org/mutker/reqprof/internal/view"
)

// Collector observes one subsystem and presents what it observed.
type Collector interface {
	// Name identifies the collector; it keys the collected data in a
	// profile and, slugified, anchors its panel.
	Name() string
	// Collect harvests the buffered observations. It must not alter the
	// observed subsystem and may be called more than once.
	Collect(r *http.Request, resp *Response) (map[string]any, error)
	// Render turns previously collected data into markup.
	Render(r view.Renderer, data map[string]any) (string, error)
	// Data summarises collected data for navigation.
	Data(data map[string]any) Summary
}

// Summary is the navigation metadata of a collector panel.
type Summary struct {
	Badge           int
	BadgeAttributes map[string]string
	Icon            string
}
