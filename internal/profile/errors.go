package profile

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("profile_invalid_db_path")
	ErrInvalidDir    = errors.ErrorCode("profile_invalid_dir")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("profile_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("profile_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("profile_schema_migration_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("profile_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Record Errors
	ErrProfileExists    = errors.ErrorCode("profile_exists")
	ErrInvalidProfileID = errors.ErrorCode("profile_invalid_id")
	ErrMalformedProfile = errors.ErrorCode("profile_malformed")
)
