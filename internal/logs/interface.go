package logs

import "context"

// Level is a log severity name.
type Level string

const (
	LevelDebug     Level = "debug"
	LevelInfo      Level = "info"
	LevelNotice    Level = "notice"
	LevelWarning   Level = "warning"
	LevelError     Level = "error"
	LevelCritical  Level = "critical"
	LevelAlert     Level = "alert"
	LevelEmergency Level = "emergency"
)

// DefaultName is the logger returned for an empty name.
const DefaultName = "default"

// Logger writes leveled messages with structured context.
type Logger interface {
	Log(ctx context.Context, level Level, msg string, fields map[string]any)
}

// Provider hands out named loggers.
type Provider interface {
	// Logger returns the named logger, falling back to the default one.
	Logger(name string) Logger
	// Get returns the named logger only if it is registered.
	Get(name string) (Logger, bool)
	Has(name string) bool
	Names() []string
	Aliases() map[string]string
}
