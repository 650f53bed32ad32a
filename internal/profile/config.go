package profile

import (
	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
)

const (
	// File system permissions and paths
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644

	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

type Config struct {
	Driver          string
	Dir             string
	DBPath          string
	BackupOnMigrate bool
	BackupDir       string
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Driver {
	case DriverJSON, "":
		if c.Dir == "" {
			return errFactory.New(ErrInvalidDir)
		}
	case DriverSQLite:
		if c.DBPath == "" {
			return errFactory.New(ErrInvalidDBPath)
		}
	default:
		return errFactory.WithData(ErrInvalidConfig, struct {
			Driver string
		}{
			Driver: c.Driver,
		})
	}
	return nil
}

// NewRepository opens the repository selected by the configured driver.
func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		return NewSQLiteRepository(cfg, log)
	}
	return NewFileRepository(cfg.Dir, log)
}
