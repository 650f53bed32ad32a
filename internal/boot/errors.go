package boot

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	ErrBootFailed  = errors.ErrorCode("boot_failed")
	ErrAlreadyDone = errors.ErrorCode("boot_already_done")
)
