// Package dump renders arbitrary values for display in profiler panels.
package dump

import (
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

const maxDepth = 6

var config = spew.ConfigState{
	Indent:                  "  ",
	MaxDepth:                maxDepth,
	DisableMethods:          false,
	DisablePointerMethods:   true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	SpewKeys:                false,
}

// String returns a plain text dump of v.
func String(v any) string {
	return strings.TrimRight(config.Sdump(v), "\n")
}

// HTML returns an escaped, preformatted dump of v.
func HTML(v any) string {
	return `<pre class="profiler-dump">` + html.EscapeString(String(v)) + `</pre>`
}

// Type returns the dynamic type of v without pointer indirection.
func Type(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}

// Request summarises a request without its context or body.
func Request(r *http.Request) map[string]any {
	if r == nil {
		return map[string]any{}
	}
	return map[string]any{
		"method":  r.Method,
		"uri":     r.URL.RequestURI(),
		"host":    r.Host,
		"proto":   r.Proto,
		"remote":  r.RemoteAddr,
		"headers": Header(r.Header),
	}
}

// Response summarises a response status and headers.
func Response(status int, header http.Header) map[string]any {
	return map[string]any{
		"status":  status,
		"headers": Header(header),
	}
}

// Header flattens multi-valued headers in key order.
func Header(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = strings.Join(h[k], ", ")
	}
	return out
}
