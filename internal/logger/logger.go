package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/reqprof/internal/errors"
	"github.com/rs/zerolog"
)

var log = zerolog.Nop()

type LogLevel int8

const (
	DebugLevel = LogLevel(zerolog.DebugLevel)
	InfoLevel  = LogLevel(zerolog.InfoLevel)
	WarnLevel  = LogLevel(zerolog.WarnLevel)
	ErrorLevel = LogLevel(zerolog.ErrorLevel)
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// ParseLevel maps a configured level name to a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "", "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return WarnLevel, errors.New().WithData(errors.ErrInvalidLogLevel, struct {
			Level string
		}{
			Level: level,
		})
	}
}

// Init initializes the logger based on the given configuration
func Init(cfg Config) {
	var out io.Writer = cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	log = zerolog.New(out).With().Timestamp().Logger()

	SetLogLevel(cfg.Level)
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// Component returns the process logger scoped to a named component.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(log.Error(), err)
}

func withCode(ev *zerolog.Event, err errors.Error) *LogEvent {
	return &LogEvent{ev.
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

type scoped struct {
	zl zerolog.Logger
}

// New wraps a zerolog logger in the Logger interface.
func New(zl zerolog.Logger) Logger {
	return &scoped{zl: zl}
}

// Get returns the process logger scoped to a component.
func Get(component string) Logger {
	return New(Component(component))
}

func (s *scoped) Debug() *LogEvent { return &LogEvent{s.zl.Debug()} }
func (s *scoped) Info() *LogEvent  { return &LogEvent{s.zl.Info()} }
func (s *scoped) Warn() *LogEvent  { return &LogEvent{s.zl.Warn()} }
func (s *scoped) Error() *LogEvent { return &LogEvent{s.zl.Error()} }

func (s *scoped) ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(s.zl.Error(), err)
}
