package profiler

import (
	"context"
	"net/http"
	"strings"

	"codeberg.org/mutker/reqprof/internal/logger"
)

type HandlerOptions struct {
	// Toolbar is nil when no view renderer is available.
	Toolbar        *Toolbar
	ToolbarEnabled bool
	// Unprofiled reports route names that are never profiled. Nil
	// profiles every route.
	Unprofiled func(routeName string) bool
}

// ResponseHandler profiles a finished response and injects the toolbar
// into html pages.
type ResponseHandler struct {
	profiler *Profiler
	opts     HandlerOptions
	logger   logger.Logger
}

func NewResponseHandler(p *Profiler, opts HandlerOptions) *ResponseHandler {
	return &ResponseHandler{
		profiler: p,
		opts:     opts,
		logger:   logger.Get("profiler"),
	}
}

// Handle returns the response to emit for r. Any profiling failure
// yields resp unchanged.
func (h *ResponseHandler) Handle(ctx context.Context, r *http.Request, routeName string, resp *Response) *Response {
	if routeName != "" && h.opts.Unprofiled != nil && h.opts.Unprofiled(routeName) {
		return resp
	}

	prof, err := h.profiler.CreateProfile(ctx, r, resp)
	if err != nil {
		h.logger.Error().Err(err).Str("uri", requestURI(r)).Msg("Failed to create profile")
		return resp
	}

	if !h.canInject(resp) {
		return resp
	}

	head, err := h.opts.Toolbar.Head()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to render toolbar head")
		return resp
	}

	toolbar, err := h.opts.Toolbar.Render(h.profiler, prof, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("profile_id", prof.ID()).Msg("Failed to render toolbar")
		return resp
	}

	body := InjectBefore(string(resp.Body), head, "</head>")
	body = InjectBefore(body, toolbar, "</body>")

	return resp.withBody([]byte(body))
}

func (h *ResponseHandler) canInject(resp *Response) bool {
	return h.opts.Toolbar != nil &&
		h.opts.ToolbarEnabled &&
		strings.Contains(resp.ContentType(), "text/html")
}

// InjectBefore inserts code before the last case-insensitive occurrence
// of tag, or appends it when tag is absent.
func InjectBefore(html, code, tag string) string {
	i := lastIndexFold(html, tag)
	if i < 0 {
		return html + code
	}
	return html[:i] + code + html[i:]
}

func lastIndexFold(s, substr string) int {
	n := len(substr)
	for i := len(s) - n; i >= 0; i-- {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

// Middleware buffers the downstream response and passes it through h.
// routeName is consulted after the downstream handler has run.
func Middleware(h *ResponseHandler, routeName func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capture := NewResponseCapture()
			next.ServeHTTP(capture, r)

			name := ""
			if routeName != nil {
				name = routeName(r)
			}

			resp := h.Handle(r.Context(), r, name, capture.Response())
			if err := resp.WriteTo(w); err != nil {
				h.logger.Debug().Err(err).Msg("Failed to write response")
			}
		})
	}
}
