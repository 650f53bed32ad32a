package storage

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	ErrInvalidQuery     = errors.ErrorCode("storage_invalid_query")
	ErrQueryFailed      = errors.ErrorCode("storage_query_failed")
	ErrDatabaseNotFound = errors.ErrorCode("storage_database_not_found")
	ErrOpenFailed       = errors.ErrorCode("storage_open_failed")
	ErrTransaction      = errors.ErrorCode("storage_transaction_failed")
)
