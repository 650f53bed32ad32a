package view

import "html/template"

// Item presents a single block of trusted markup.
type Item struct {
	HTML        string
	Title       string
	Description string
	RenderEmpty bool
}

func (i *Item) Render() bool {
	return i.RenderEmpty || i.HTML != ""
}

func (i *Item) Content() template.HTML {
	return template.HTML(i.HTML)
}

// RenderItem renders i, or nothing if it has no content.
func RenderItem(r Renderer, i *Item) (string, error) {
	if !i.Render() {
		return "", nil
	}
	return r.Render(ItemView, map[string]any{"item": i})
}
