package errors

const (
	ErrInternal ErrorCode = "internal_error"

	// Configuration
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrMissingConfig ErrorCode = "missing_configuration"
	ErrBindFlags     ErrorCode = "bind_flags_failed"
	ErrReadConfig    ErrorCode = "read_config_failed"
	ErrWatchConfig   ErrorCode = "watch_config_failed"

	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Process lifecycle
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Commands
	ErrInitApp          ErrorCode = "init_app_failed"
	ErrServe            ErrorCode = "serve_failed"
	ErrCommandFailed    ErrorCode = "command_failed"
	ErrResourceNotFound ErrorCode = "resource_not_found"
)

var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidConfig:    "Invalid configuration",
	ErrMissingConfig:    "Missing configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read configuration",
	ErrWatchConfig:      "Failed to watch configuration",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrInitApp:          "Failed to initialize application",
	ErrServe:            "Failed to serve HTTP",
	ErrCommandFailed:    "Command failed",
	ErrResourceNotFound: "Resource not found",
}

// GetErrorMessage returns the default message of code, or the code itself.
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return string(code)
}
