package collector

import (
	"net/http"
	"sync"

	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/translation"
	"codeberg.org/mutker/reqprof/internal/view"
)

// MissingRecorder is a translation.MissingHandler recording every miss
// before handing it to the wrapped handler.
type MissingRecorder struct {
	handler translation.MissingHandler

	mu   sync.Mutex
	data map[string][]map[string]any
}

// NewMissingRecorder wraps h. A nil h returns translations unchanged.
func NewMissingRecorder(h translation.MissingHandler) *MissingRecorder {
	if h == nil {
		h = translation.PassThrough{}
	}
	return &MissingRecorder{handler: h, data: map[string][]map[string]any{}}
}

func (m *MissingRecorder) add(kind string, row map[string]any) {
	m.mu.Lock()
	m.data[kind] = append(m.data[kind], row)
	m.mu.Unlock()
}

func (m *MissingRecorder) Missing(text, message string, params map[string]any, locale, requested string) string {
	m.add("missing", map[string]any{
		"translation":      text,
		"message":          message,
		"parameters":       params,
		"locale":           locale,
		"requested locale": requested,
	})
	return m.handler.Missing(text, message, params, locale, requested)
}

func (m *MissingRecorder) Fallback(text, message string, params map[string]any, fallbackLocale, requested string) string {
	m.add("fallback", map[string]any{
		"translation":      text,
		"message":          message,
		"parameters":       params,
		"fallback locale":  fallbackLocale,
		"requested locale": requested,
	})
	return m.handler.Fallback(text, message, params, fallbackLocale, requested)
}

func (m *MissingRecorder) FallbackToDefault(text, message string, params map[string]any, defaultLocale, requested string) string {
	m.add("fallbackToDefault", map[string]any{
		"translation":      text,
		"message":          message,
		"parameters":       params,
		"default locale":   defaultLocale,
		"requested locale": requested,
	})
	return m.handler.FallbackToDefault(text, message, params, defaultLocale, requested)
}

// All returns the recorded misses keyed by kind.
func (m *MissingRecorder) All() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]any, len(m.data))
	for kind, rows := range m.data {
		out[kind] = append([]map[string]any(nil), rows...)
	}
	return out
}

// Translation shows missing and fallback translations.
type Translation struct {
	recorder *MissingRecorder
}

func NewTranslation(recorder *MissingRecorder) *Translation {
	return &Translation{recorder: recorder}
}

func (c *Translation) Name() string { return TranslationName }

func (c *Translation) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	if c.recorder == nil {
		return map[string]any{}, nil
	}
	return c.recorder.All(), nil
}

func (c *Translation) Render(r view.Renderer, data map[string]any) (string, error) {
	return renderTables(r,
		&view.Table{
			Rows:        view.Rows(data["missing"]),
			Title:       "Missing Translations",
			Description: "Missing translations.",
			Columns:     []string{"translation", "message", "parameters", "locale", "requested locale"},
		},
		&view.Table{
			Rows:        view.Rows(data["fallback"]),
			Title:       "Fallback Translations",
			Description: "Missing translations served from the fallback locale.",
			Columns:     []string{"translation", "message", "parameters", "fallback locale", "requested locale"},
		},
		&view.Table{
			Rows:        view.Rows(data["fallbackToDefault"]),
			Title:       "Fallback To Default Translations",
			Description: "Missing translations served from the default locale.",
			Columns:     []string{"translation", "message", "parameters", "default locale", "requested locale"},
		},
	)
}

func (c *Translation) Data(map[string]any) profiler.Summary {
	return profiler.Summary{}
}
