package collector

import (
	"net/http"

	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/session"
	"codeberg.org/mutker/reqprof/internal/view"
)

type SessionOptions struct {
	// Hiddens are dot paths whose values are masked.
	Hiddens []string `mapstructure:"hiddens"`
}

// Session shows the session data of the request.
type Session struct {
	session func() *session.Session
	opts    SessionOptions
}

// NewSession creates the collector. current returns nil when there is
// no session.
func NewSession(current func() *session.Session, opts SessionOptions) *Session {
	return &Session{session: current, opts: opts}
}

func (c *Session) Name() string { return SessionName }

func (c *Session) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	if c.session == nil {
		return map[string]any{}, nil
	}
	sess := c.session()
	if sess == nil {
		return map[string]any{}, nil
	}

	data := session.Hide(sess.All(), c.opts.Hiddens, Hidden)
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	return map[string]any{"session": dump.HTML(data)}, nil
}

func (c *Session) Render(r view.Renderer, data map[string]any) (string, error) {
	html, _ := data["session"].(string)
	return view.RenderItem(r, &view.Item{HTML: html, Title: "Session"})
}

func (c *Session) Data(map[string]any) profiler.Summary {
	return profiler.Summary{}
}
