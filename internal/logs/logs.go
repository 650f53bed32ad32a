package logs

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Loggers is the registry of named loggers.
type Loggers struct {
	mu      sync.RWMutex
	loggers map[string]Logger
	aliases map[string]string
}

func NewLoggers() *Loggers {
	return &Loggers{
		loggers: make(map[string]Logger),
		aliases: make(map[string]string),
	}
}

func (l *Loggers) Add(name string, logger Logger) *Loggers {
	l.mu.Lock()
	l.loggers[name] = logger
	l.mu.Unlock()
	return l
}

func (l *Loggers) AddAlias(alias, name string) *Loggers {
	l.mu.Lock()
	l.aliases[alias] = name
	l.mu.Unlock()
	return l
}

func (l *Loggers) Logger(name string) Logger {
	if name == "" {
		name = DefaultName
	}
	if logger, ok := l.Get(name); ok {
		return logger
	}
	if logger, ok := l.Get(DefaultName); ok {
		return logger
	}
	return Null{}
}

func (l *Loggers) Get(name string) (Logger, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if target, ok := l.aliases[name]; ok {
		name = target
	}
	logger, ok := l.loggers[name]
	return logger, ok
}

func (l *Loggers) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

func (l *Loggers) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.loggers))
	for name := range l.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Loggers) Aliases() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]string, len(l.aliases))
	for k, v := range l.aliases {
		out[k] = v
	}
	return out
}

// Zerolog writes to a zerolog logger.
type Zerolog struct {
	zl zerolog.Logger
}

func NewZerolog(zl zerolog.Logger) *Zerolog {
	return &Zerolog{zl: zl}
}

func (z *Zerolog) Log(_ context.Context, level Level, msg string, fields map[string]any) {
	z.zl.WithLevel(zerologLevel(level)).Fields(fields).Msg(msg)
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo, LevelNotice:
		return zerolog.InfoLevel
	case LevelWarning:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelCritical, LevelAlert, LevelEmergency:
		return zerolog.FatalLevel
	default:
		return zerolog.NoLevel
	}
}

// Null discards everything.
type Null struct{}

func (Null) Log(context.Context, Level, string, map[string]any) {}
