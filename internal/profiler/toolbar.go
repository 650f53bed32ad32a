package profiler

import (
	"html/template"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/profile"
	"codeberg.org/mutker/reqprof/internal/view"
)

const (
	DefaultToolbarAction = "/profiler/toolbar/profile"
	DefaultRefreshAction = "/profiler/toolbar/profiles"
	DefaultAssetsPath    = "/profiler/assets/profiler"

	// MaxToolbarProfiles caps the profile selector.
	MaxToolbarProfiles = 30
)

// ProfileView is the template model of a profile summary.
type ProfileView struct {
	ID         string
	Method     string
	URI        string
	StatusCode int
	Visitable  bool
	Time       int64
	HasTime    bool
	ShowURL    string
}

func NewProfileView(p *profile.Profile) ProfileView {
	v := ProfileView{
		ID:         p.ID(),
		Method:     p.Method(),
		URI:        p.URI(),
		StatusCode: p.StatusCode(),
		Visitable:  p.IsURIVisitable(),
	}
	v.Time, v.HasTime = p.Time()
	return v
}

func ProfileViews(profiles []*profile.Profile) []ProfileView {
	views := make([]ProfileView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, NewProfileView(p))
	}
	return views
}

// Panel is the rendered output of one collector.
type Panel struct {
	ID              string
	Name            string
	Badge           int
	BadgeAttributes map[string]string
	Icon            string
	HTML            template.HTML
}

// Panels renders every collector that collected something for prof.
// A panel that fails to render is logged and shown empty.
func (p *Profiler) Panels(prof *profile.Profile, r view.Renderer) []Panel {
	panels := make([]Panel, 0, len(p.collectors))
	for _, c := range p.collectors {
		data := p.CollectedData(c.Name(), prof)
		if len(data) == 0 {
			continue
		}

		html, err := p.RenderCollector(c.Name(), prof, r)
		if err != nil {
			p.logger.Warn().Err(err).Str("collector", c.Name()).Msg("Failed to render collector")
		}

		summary := c.Data(data)
		panels = append(panels, Panel{
			ID:              NameToID(c.Name()),
			Name:            c.Name(),
			Badge:           summary.Badge,
			BadgeAttributes: summary.BadgeAttributes,
			Icon:            summary.Icon,
			HTML:            template.HTML(html),
		})
	}
	return panels
}

type ToolbarOptions struct {
	Action        string
	RefreshAction string
	AssetsPath    string
}

// Toolbar renders the injected toolbar fragments.
type Toolbar struct {
	renderer view.Renderer
	opts     ToolbarOptions
}

func NewToolbar(r view.Renderer, opts ToolbarOptions) *Toolbar {
	if opts.Action == "" {
		opts.Action = DefaultToolbarAction
	}
	if opts.RefreshAction == "" {
		opts.RefreshAction = DefaultRefreshAction
	}
	if opts.AssetsPath == "" {
		opts.AssetsPath = DefaultAssetsPath
	}
	return &Toolbar{renderer: r, opts: opts}
}

func (t *Toolbar) Renderer() view.Renderer {
	return t.renderer
}

// Render renders the toolbar body for current. profiles fills the
// profile selector.
func (t *Toolbar) Render(p *Profiler, current *profile.Profile, profiles []*profile.Profile) (string, error) {
	if current == nil {
		return "", errors.New().WithMessage(ErrRenderFailed, "no profile to render")
	}
	if len(profiles) == 0 {
		profiles = []*profile.Profile{current}
	}

	html, err := t.renderer.Render(view.ToolbarView, map[string]any{
		"profile":       NewProfileView(current),
		"profiles":      ProfileViews(profiles),
		"panels":        p.Panels(current, t.renderer),
		"action":        t.opts.Action,
		"refreshAction": t.opts.RefreshAction,
	})
	if err != nil {
		return "", errors.New().Wrap(ErrRenderFailed, err)
	}
	return html, nil
}

// Head renders the stylesheet and script tags of the toolbar.
func (t *Toolbar) Head() (string, error) {
	html, err := t.renderer.Render(view.HeadView, map[string]any{
		"assetsPath": t.opts.AssetsPath,
	})
	if err != nil {
		return "", errors.New().Wrap(ErrRenderFailed, err)
	}
	return html, nil
}
