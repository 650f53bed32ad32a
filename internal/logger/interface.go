package logger

import (
	"io"

	"codeberg.org/mutker/reqprof/internal/errors"
)

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
}

// Config controls the process logger.
type Config struct {
	Level  LogLevel
	Pretty bool
	Output io.Writer
}
