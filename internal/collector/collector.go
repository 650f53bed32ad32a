// Package collector provides the profiler collectors and the adapters
// that let them observe each subsystem.
package collector

import (
	"fmt"
	"sort"
	"strings"

	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/view"
)

const (
	LogsName            = "Logs"
	EventsName          = "Events"
	JobsName            = "Jobs"
	StorageQueriesName  = "Storage Queries"
	MiddlewareName      = "Middleware"
	ViewName            = "View"
	SessionName         = "Session"
	RoutesName          = "Routes"
	BootsName           = "Boots"
	RequestResponseName = "Request / Response"
	TranslationName     = "Translation"
)

// Hidden is the mask shown instead of hidden values.
const Hidden = "******"

func renderTables(r view.Renderer, tables ...*view.Table) (string, error) {
	var b strings.Builder
	for _, t := range tables {
		html, err := view.RenderTable(r, t)
		if err != nil {
			return "", err
		}
		b.WriteString(html)
	}
	return b.String(), nil
}

func countSummary(n int, format string) profiler.Summary {
	return profiler.Summary{
		Badge:           n,
		BadgeAttributes: map[string]string{"title": fmt.Sprintf(format, n)},
	}
}

// count returns the length of a list value of collected data.
func count(v any) int {
	switch list := v.(type) {
	case []any:
		return len(list)
	case []map[string]any:
		return len(list)
	default:
		return 0
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
