package profile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
)

const (
	fileExt = ".json"

	// mtimeStep separates the modification times of records written
	// within the same clock tick.
	mtimeStep = time.Millisecond
)

// FileRepository stores one JSON file per profile in a directory.
// Listings order by modification time; records written by one
// repository get strictly increasing times. On file systems with a
// coarser timestamp resolution than mtimeStep, or across processes,
// equal times can still occur and list by id.
type FileRepository struct {
	dir    string
	logger logger.Logger

	mu      sync.Mutex
	lastMod time.Time
}

func NewFileRepository(dir string, log logger.Logger) (*FileRepository, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New().New(ErrInvalidDir)
	}
	if log == nil {
		log = logger.Get("profile")
	}

	return &FileRepository{dir: filepath.Clean(dir), logger: log}, nil
}

// Dir returns the storage directory.
func (r *FileRepository) Dir() string {
	return r.dir
}

// path resolves an id to its record file. The id is reduced to its base
// name so it can never address anything outside the storage directory.
func (r *FileRepository) path(id string) (string, bool) {
	name := filepath.Base(id)
	switch name {
	case "", ".", "..", "/":
		return "", false
	}

	return filepath.Join(r.dir, name+fileExt), true
}

func (r *FileRepository) Write(_ context.Context, p *Profile) error {
	errFactory := errors.New()

	path, ok := r.path(p.ID())
	if !ok || filepath.Base(path) != p.ID()+fileExt {
		return errFactory.WithData(ErrInvalidProfileID, struct {
			ID string
		}{
			ID: p.ID(),
		})
	}

	content, err := json.Marshal(p)
	if err != nil {
		return errFactory.Wrap(ErrMalformedProfile, err)
	}

	if err := os.MkdirAll(r.dir, defaultDirPerm); err != nil {
		return errFactory.WithData(ErrStorageAccess, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  r.dir,
			Error: err.Error(),
		})
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, defaultFilePerm)
	if err != nil {
		if os.IsExist(err) {
			return errFactory.WithData(ErrProfileExists, struct {
				ID string
			}{
				ID: p.ID(),
			})
		}
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	if err := f.Close(); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	if err := r.stamp(path); err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Failed to set profile modification time")
	}

	r.logger.Debug().Str("profile_id", p.ID()).Str("path", path).Msg("Profile written")

	return nil
}

// stamp sets the modification time of a new record past every record
// written before it.
func (r *FileRepository) stamp(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mod := time.Now()
	if !mod.After(r.lastMod) {
		mod = r.lastMod.Add(mtimeStep)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		return err
	}
	r.lastMod = mod
	return nil
}

func (r *FileRepository) FindByID(_ context.Context, id string) (*Profile, error) {
	path, ok := r.path(id)
	if !ok {
		return nil, nil
	}

	return r.read(path), nil
}

func (r *FileRepository) read(path string) *Profile {
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("path", path).Msg("Failed to read profile")
		}
		return nil
	}

	p, err := Decode(content)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("Skipping malformed profile")
		return nil
	}

	return p
}

type entry struct {
	path    string
	modTime time.Time
}

func (r *FileRepository) entries() ([]entry, error) {
	dirEntries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}

	entries := make([]entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != fileExt {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed between listing and stat
			continue
		}
		entries = append(entries, entry{
			path:    filepath.Join(r.dir, de.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].modTime.Equal(entries[j].modTime) {
			return entries[i].path > entries[j].path
		}
		return entries[i].modTime.After(entries[j].modTime)
	})

	return entries, nil
}

// FindAll lists profiles newest first by file modification time. The
// limit applies to readable records matching the query.
func (r *FileRepository) FindAll(ctx context.Context, q Query) ([]*Profile, error) {
	entries, err := r.entries()
	if err != nil {
		return nil, err
	}

	count, offset := q.bounds()
	profiles := make([]*Profile, 0)
	skipped := 0

	for _, e := range entries {
		if len(profiles) >= count {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.read(e.path)
		if p == nil || !p.matches(q.Where) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

func (r *FileRepository) Clear(_ context.Context) error {
	if err := os.RemoveAll(r.dir); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	r.logger.Info().Str("path", r.dir).Msg("Profiles cleared")

	return nil
}
