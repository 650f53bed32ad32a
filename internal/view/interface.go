package view

// Renderer renders named views.
type Renderer interface {
	// Render executes the named view with data.
	Render(name string, data map[string]any) (string, error)
	// Exists reports whether a view with that name is known.
	Exists(name string) bool
}

// View names rendered by the profiler.
const (
	TableView   = "profiler/table"
	ItemView    = "profiler/item"
	ToolbarView = "profiler/toolbar/toolbar"
	HeadView    = "profiler/toolbar/head"
	IndexView   = "profiler/profiles/index"
	ProfileView = "profiler/profiles/profile"
)
