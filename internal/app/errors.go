package app

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	ErrUnknownCollector        errors.ErrorCode = "app_unknown_collector"
	ErrInvalidCollectorOptions errors.ErrorCode = "app_invalid_collector_options"
	ErrServicesFailed          errors.ErrorCode = "app_services_failed"
	ErrNotBooted               errors.ErrorCode = "app_not_booted"
)
