package console

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	ErrCommandFailed errors.ErrorCode = "console_command_failed"
	ErrProfileFailed errors.ErrorCode = "console_profile_failed"
)
