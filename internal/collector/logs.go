package collector

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/logs"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/view"
)

// LogRecorder buffers log entries per logger name.
type LogRecorder struct {
	mu      sync.Mutex
	entries map[string][]map[string]any
}

func NewLogRecorder() *LogRecorder {
	return &LogRecorder{entries: make(map[string][]map[string]any)}
}

func (r *LogRecorder) Record(name string, level logs.Level, msg string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}

	r.mu.Lock()
	r.entries[name] = append(r.entries[name], map[string]any{
		"level":   string(level),
		"message": msg,
		"context": dump.HTML(fields),
	})
	r.mu.Unlock()
}

func (r *LogRecorder) All() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]any, len(r.entries))
	for name, entries := range r.entries {
		out[name] = append([]map[string]any(nil), entries...)
	}
	return out
}

// Loggers is a logs.Provider whose loggers also write to a recorder.
type Loggers struct {
	loggers  logs.Provider
	recorder *LogRecorder
	except   []string
}

func NewLoggers(loggers logs.Provider, recorder *LogRecorder, except []string) *Loggers {
	return &Loggers{loggers: loggers, recorder: recorder, except: except}
}

func (l *Loggers) Logger(name string) logs.Logger {
	if name == "" {
		name = logs.DefaultName
	}
	return l.wrap(name, l.loggers.Logger(name))
}

func (l *Loggers) Get(name string) (logs.Logger, bool) {
	logger, ok := l.loggers.Get(name)
	if !ok {
		return nil, false
	}
	return l.wrap(name, logger), true
}

func (l *Loggers) Has(name string) bool       { return l.loggers.Has(name) }
func (l *Loggers) Names() []string            { return l.loggers.Names() }
func (l *Loggers) Aliases() map[string]string { return l.loggers.Aliases() }

func (l *Loggers) wrap(name string, logger logs.Logger) logs.Logger {
	if slices.Contains(l.except, name) {
		return logger
	}
	if _, ok := logger.(*recordingLogger); ok {
		return logger
	}
	return &recordingLogger{logger: logger, name: name, recorder: l.recorder}
}

type recordingLogger struct {
	logger   logs.Logger
	name     string
	recorder *LogRecorder
}

func (l *recordingLogger) Log(ctx context.Context, level logs.Level, msg string, fields map[string]any) {
	l.recorder.Record(l.name, level, msg, fields)
	l.logger.Log(ctx, level, msg, fields)
}

// Logs shows what every profiled logger wrote.
type Logs struct {
	recorder *LogRecorder
}

func NewLogs(recorder *LogRecorder) *Logs {
	return &Logs{recorder: recorder}
}

func (c *Logs) Name() string { return LogsName }

func (c *Logs) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	return c.recorder.All(), nil
}

func (c *Logs) Render(r view.Renderer, data map[string]any) (string, error) {
	tables := make([]*view.Table, 0, len(data))
	for _, name := range sortedKeys(data) {
		tables = append(tables, &view.Table{
			Rows:    view.Rows(data[name]),
			Title:   fmt.Sprintf("Logger [%s]", name),
			Columns: []string{"level", "message", "context"},
			HTML:    []string{"context"},
		})
	}
	return renderTables(r, tables...)
}

func (c *Logs) Data(data map[string]any) profiler.Summary {
	n := 0
	for _, entries := range data {
		n += count(entries)
	}
	return countSummary(n, "%d logs")
}
