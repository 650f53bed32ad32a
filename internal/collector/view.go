package collector

import (
	"net/http"
	"sync"

	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/view"
)

// ViewRecorder records rendered and missed views.
type ViewRecorder struct {
	mu       sync.Mutex
	rendered []map[string]any
	missed   []map[string]any
}

func NewViewRecorder() *ViewRecorder {
	return &ViewRecorder{}
}

func (r *ViewRecorder) add(missed bool, name string, data map[string]any) {
	row := map[string]any{"view": name, "data": dump.HTML(sortedKeys(data))}

	r.mu.Lock()
	if missed {
		r.missed = append(r.missed, row)
	} else {
		r.rendered = append(r.rendered, row)
	}
	r.mu.Unlock()
}

// All returns the rendered and missed views.
func (r *ViewRecorder) All() (rendered, missed []map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.rendered...), append([]map[string]any(nil), r.missed...)
}

// Renderer is a view.Renderer recording every render. A view that does
// not exist renders as an empty string.
type Renderer struct {
	renderer view.Renderer
	recorder *ViewRecorder
}

func NewRenderer(r view.Renderer, recorder *ViewRecorder) *Renderer {
	return &Renderer{renderer: r, recorder: recorder}
}

func (r *Renderer) Render(name string, data map[string]any) (string, error) {
	html, err := r.renderer.Render(name, data)
	if view.IsNotFound(err) {
		r.recorder.add(true, name, data)
		return "", nil
	}
	r.recorder.add(false, name, data)
	return html, err
}

func (r *Renderer) Exists(name string) bool {
	return r.renderer.Exists(name)
}

type ViewOptions struct {
	CollectViews  bool `mapstructure:"collect_views"`
	CollectAssets bool `mapstructure:"collect_assets"`
}

// View shows the rendered views and the registered assets.
type View struct {
	recorder *ViewRecorder
	assets   *view.Assets
	opts     ViewOptions
}

// NewView creates the collector. assets may be nil.
func NewView(recorder *ViewRecorder, assets *view.Assets, opts ViewOptions) *View {
	return &View{recorder: recorder, assets: assets, opts: opts}
}

func (c *View) Name() string { return ViewName }

func (c *View) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	data := map[string]any{}

	if c.opts.CollectViews && c.recorder != nil {
		rendered, missed := c.recorder.All()
		views := map[string]any{}
		if len(rendered) > 0 {
			views["rendered"] = rendered
		}
		if len(missed) > 0 {
			views["missed"] = missed
		}
		if len(views) > 0 {
			data["views"] = views
		}
	}

	if c.opts.CollectAssets && c.assets != nil {
		all := c.assets.All()
		if len(all) > 0 {
			rows := make([]map[string]any, 0, len(all))
			for _, a := range all {
				rows = append(rows, map[string]any{
					"file":       a.File,
					"group":      a.Group,
					"order":      a.Order,
					"attributes": a.Attributes,
				})
			}
			data["assets"] = rows
		}
	}

	return data, nil
}

func (c *View) Render(r view.Renderer, data map[string]any) (string, error) {
	views, _ := data["views"].(map[string]any)

	return renderTables(r,
		&view.Table{
			Rows:    view.Rows(views["rendered"]),
			Title:   "Views Stack",
			Columns: []string{"view", "data"},
			HTML:    []string{"data"},
		},
		&view.Table{
			Rows:        view.Rows(views["missed"]),
			Title:       "Missed Views",
			Description: "Views that do not exist or are added depending on the context.",
			Columns:     []string{"view", "data"},
			HTML:        []string{"data"},
		},
		&view.Table{
			Rows:    view.Rows(data["assets"]),
			Title:   "View Assets",
			Columns: []string{"file", "group", "order", "attributes"},
		},
	)
}

func (c *View) Data(map[string]any) profiler.Summary {
	return profiler.Summary{}
}
