package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
	"github.com/mattn/go-sqlite3"
)

// SQLiteRepository stores profiles in a single SQLite table.
type SQLiteRepository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
	// last created_at handed out, keeps insertion order strict
	seq atomic.Int64
}

func NewSQLiteRepository(cfg Config, log logger.Logger) (*SQLiteRepository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}
	if log == nil {
		log = logger.Get("profile")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Profile repository initialized")

	return &SQLiteRepository{db: db, logger: log, cfg: cfg}, nil
}

func (r *SQLiteRepository) createdAt() int64 {
	now := time.Now().UnixNano()
	for {
		last := r.seq.Load()
		if now <= last {
			now = last + 1
		}
		if r.seq.CompareAndSwap(last, now) {
			return now
		}
	}
}

func (r *SQLiteRepository) Write(ctx context.Context, p *Profile) error {
	errFactory := errors.New()

	if p.ID() == "" {
		return errFactory.New(ErrInvalidProfileID)
	}

	data, err := json.Marshal(p.Data())
	if err != nil {
		return errFactory.Wrap(ErrMalformedProfile, err)
	}

	var t sql.NullInt64
	if v, ok := p.Time(); ok {
		t = sql.NullInt64{Int64: v, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, insertProfileSQL,
		p.ID(), p.Method(), p.URI(), int64(p.StatusCode()), p.ContentType(), t, r.createdAt(), string(data))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return errFactory.WithData(ErrProfileExists, struct {
				ID string
			}{
				ID: p.ID(),
			})
		}
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	r.logger.Debug().Str("profile_id", p.ID()).Msg("Profile written")

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*Profile, error) {
	var (
		rec  record
		t    sql.NullInt64
		data string
	)
	if err := row.Scan(&rec.ID, &rec.Method, &rec.URI, &rec.StatusCode, &rec.ContentType, &t, &data); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil || rec.Data == nil {
		return nil, errors.New().WithMessage(ErrMalformedProfile, "data must be an object")
	}
	if t.Valid {
		rec.Time = &t.Int64
	}

	return New(Params(rec)), nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, selectProfileSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if errors.HasCode(err, ErrMalformedProfile) {
		r.logger.Debug().Err(err).Str("profile_id", id).Msg("Skipping malformed profile")
		return nil, nil
	}
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}
	return p, nil
}

func (r *SQLiteRepository) FindAll(ctx context.Context, q Query) ([]*Profile, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectProfilesSQL)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	count, offset := q.bounds()
	profiles := make([]*Profile, 0)
	skipped := 0

	for rows.Next() && len(profiles) < count {
		p, err := scanProfile(rows)
		if err != nil {
			r.logger.Debug().Err(err).Msg("Skipping malformed profile")
			continue
		}
		if !p.matches(q.Where) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return profiles, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, deleteProfilesSQL); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	r.logger.Info().Str("path", r.cfg.DBPath).Msg("Profiles cleared")

	return nil
}

func (r *SQLiteRepository) Close() error {
	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.logger.Debug().Err(err).Msg("Failed to checkpoint WAL")
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	return nil
}
