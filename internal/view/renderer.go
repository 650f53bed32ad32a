package view

import (
	"bytes"
	"embed"
	"html"
	"html/template"
	"io/fs"
	"sort"
	"strings"
	"time"

	"codeberg.org/mutker/reqprof/internal/errors"
)

const templateExt = ".tmpl"

//go:embed templates assets
var embedded embed.FS

// ProfilerTemplates returns the bundled profiler views.
func ProfilerTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// ProfilerAssets returns the bundled toolbar stylesheet and script.
func ProfilerAssets() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateRenderer renders html/template views. A view is named by its
// path relative to the source root without the extension.
type TemplateRenderer struct {
	root *template.Template
}

// NewTemplateRenderer parses every *.tmpl file of the given sources.
// Later sources override views of earlier ones.
func NewTemplateRenderer(funcs template.FuncMap, sources ...fs.FS) (*TemplateRenderer, error) {
	errFactory := errors.New()

	root := template.New("").Funcs(DefaultFuncs()).Funcs(funcs)

	for _, src := range sources {
		err := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, templateExt) {
				return nil
			}

			content, err := fs.ReadFile(src, path)
			if err != nil {
				return err
			}

			name := strings.TrimSuffix(path, templateExt)
			if _, err := root.New(name).Parse(string(content)); err != nil {
				return errFactory.WithData(ErrParseFailed, struct {
					View  string
					Error string
				}{
					View:  name,
					Error: err.Error(),
				})
			}
			return nil
		})
		if err != nil {
			if errors.HasCode(err, ErrParseFailed) {
				return nil, err
			}
			return nil, errFactory.Wrap(ErrParseFailed, err)
		}
	}

	return &TemplateRenderer{root: root}, nil
}

func (r *TemplateRenderer) Exists(name string) bool {
	return name != "" && r.root.Lookup(name) != nil
}

func (r *TemplateRenderer) Render(name string, data map[string]any) (string, error) {
	errFactory := errors.New()

	if !r.Exists(name) {
		return "", errFactory.WithData(ErrNotFound, struct {
			View string
		}{
			View: name,
		})
	}

	if data == nil {
		data = map[string]any{}
	}

	var buf bytes.Buffer
	if err := r.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errFactory.Wrap(ErrRenderFailed, err)
	}

	return buf.String(), nil
}

// DefaultFuncs are available to every view.
func DefaultFuncs() template.FuncMap {
	return template.FuncMap{
		"attrs":     Attributes,
		"shortTime": func(unix int64) string { return time.Unix(unix, 0).Format("02/01/2006 15:04:05") },
		"longTime":  func(unix int64) string { return time.Unix(unix, 0).Format("Monday, 02. January 2006, 15:04:05") },
		"raw":       func(s string) template.HTML { return template.HTML(s) },
	}
}

// Attributes renders a map as escaped html attributes in key order.
func Attributes(attrs map[string]string) template.HTMLAttr {
	if len(attrs) == 0 {
		return ""
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(html.EscapeString(k))
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(attrs[k]))
		b.WriteString(`"`)
	}

	return template.HTMLAttr(b.String())
}
