package queue

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	ErrQueueNotFound = errors.ErrorCode("queue_not_found")
	ErrInvalidJob    = errors.ErrorCode("queue_invalid_job")
)
