package collector

import (
	"context"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/storage"
	"codeberg.org/mutker/reqprof/internal/view"
)

// QueryRecorder records executed queries.
type QueryRecorder struct {
	mu      sync.Mutex
	queries []map[string]any
}

func NewQueryRecorder() *QueryRecorder {
	return &QueryRecorder{}
}

func (r *QueryRecorder) Add(query map[string]any) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()
}

func (r *QueryRecorder) All() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.queries...)
}

// Databases is a storage.Databases handing out recording storages.
type Databases struct {
	databases storage.Databases
	recorder  *QueryRecorder
}

func NewDatabases(databases storage.Databases, recorder *QueryRecorder) *Databases {
	return &Databases{databases: databases, recorder: recorder}
}

func (d *Databases) Get(name string) (storage.Storage, error) {
	s, err := d.databases.Get(name)
	if err != nil {
		return nil, err
	}
	return d.wrap(s), nil
}

func (d *Databases) Default(role string) (storage.Storage, error) {
	s, err := d.databases.Default(role)
	if err != nil {
		return nil, err
	}
	return d.wrap(s), nil
}

func (d *Databases) Has(name string) bool        { return d.databases.Has(name) }
func (d *Databases) Names() []string             { return d.databases.Names() }
func (d *Databases) Defaults() map[string]string { return d.databases.Defaults() }

func (d *Databases) wrap(s storage.Storage) storage.Storage {
	if _, ok := s.(*QueryStorage); ok {
		return s
	}
	return NewQueryStorage(s, d.recorder)
}

// QueryStorage times and records every query executed by the wrapped
// storage. Builder calls pass through.
type QueryStorage struct {
	storage  storage.Storage
	recorder *QueryRecorder
}

func NewQueryStorage(s storage.Storage, recorder *QueryRecorder) *QueryStorage {
	return &QueryStorage{storage: s, recorder: recorder}
}

// Unwrap returns the wrapped storage.
func (s *QueryStorage) Unwrap() storage.Storage {
	return s.storage
}

func (s *QueryStorage) record(start time.Time, err error) {
	if err != nil {
		return
	}
	g := s.storage.Grammar()
	if g == nil {
		return
	}

	s.recorder.Add(map[string]any{
		"time (ms)": float64(time.Since(start).Nanoseconds()) / 1e6,
		"statement": g.Statement,
		"bindings":  g.Bindings,
		"item":      g.Item,
		"storage":   dump.Type(s.storage),
	})
}

func (s *QueryStorage) New() storage.Storage {
	return NewQueryStorage(s.storage.New(), s.recorder)
}

func (s *QueryStorage) Table(name string) storage.Storage {
	s.storage.Table(name)
	return s
}

func (s *QueryStorage) TableName() string {
	return s.storage.TableName()
}

func (s *QueryStorage) Select(columns ...string) storage.Storage {
	s.storage.Select(columns...)
	return s
}

func (s *QueryStorage) Where(column, operator string, value any) storage.Storage {
	s.storage.Where(column, operator, value)
	return s
}

func (s *QueryStorage) Join(table, first, operator, second string) storage.Storage {
	s.storage.Join(table, first, operator, second)
	return s
}

func (s *QueryStorage) LeftJoin(table, first, operator, second string) storage.Storage {
	s.storage.LeftJoin(table, first, operator, second)
	return s
}

func (s *QueryStorage) OrderBy(column, direction string) storage.Storage {
	s.storage.OrderBy(column, direction)
	return s
}

func (s *QueryStorage) Limit(count, offset int) storage.Storage {
	s.storage.Limit(count, offset)
	return s
}

func (s *QueryStorage) Grammar() *storage.Grammar {
	return s.storage.Grammar()
}

func (s *QueryStorage) Transaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	return s.storage.Transaction(ctx, func(tx storage.Storage) error {
		return fn(NewQueryStorage(tx, s.recorder))
	})
}

func (s *QueryStorage) Find(ctx context.Context, id any) (storage.Item, error) {
	start := time.Now()
	item, err := s.storage.Find(ctx, id)
	s.record(start, err)
	return item, err
}

func (s *QueryStorage) First(ctx context.Context) (storage.Item, error) {
	start := time.Now()
	item, err := s.storage.First(ctx)
	s.record(start, err)
	return item, err
}

func (s *QueryStorage) Get(ctx context.Context) ([]storage.Item, error) {
	start := time.Now()
	items, err := s.storage.Get(ctx)
	s.record(start, err)
	return items, err
}

func (s *QueryStorage) Value(ctx context.Context, column string) (any, error) {
	start := time.Now()
	v, err := s.storage.Value(ctx, column)
	s.record(start, err)
	return v, err
}

func (s *QueryStorage) Column(ctx context.Context, column, key string) (storage.Item, error) {
	start := time.Now()
	item, err := s.storage.Column(ctx, column, key)
	s.record(start, err)
	return item, err
}

func (s *QueryStorage) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.storage.Count(ctx)
	s.record(start, err)
	return n, err
}

func (s *QueryStorage) Insert(ctx context.Context, item storage.Item) (storage.Item, error) {
	start := time.Now()
	inserted, err := s.storage.Insert(ctx, item)
	s.record(start, err)
	return inserted, err
}

func (s *QueryStorage) InsertItems(ctx context.Context, items []storage.Item) (int64, error) {
	start := time.Now()
	n, err := s.storage.InsertItems(ctx, items)
	s.record(start, err)
	return n, err
}

func (s *QueryStorage) Update(ctx context.Context, item storage.Item) (int64, error) {
	start := time.Now()
	n, err := s.storage.Update(ctx, item)
	s.record(start, err)
	return n, err
}

func (s *QueryStorage) UpdateOrInsert(ctx context.Context, attributes, item storage.Item) (storage.Item, error) {
	start := time.Now()
	out, err := s.storage.UpdateOrInsert(ctx, attributes, item)
	s.record(start, err)
	return out, err
}

func (s *QueryStorage) Delete(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.storage.Delete(ctx)
	s.record(start, err)
	return n, err
}

// StorageQueries shows the executed queries.
type StorageQueries struct {
	recorder *QueryRecorder
}

func NewStorageQueries(recorder *QueryRecorder) *StorageQueries {
	return &StorageQueries{recorder: recorder}
}

func (c *StorageQueries) Name() string { return StorageQueriesName }

func (c *StorageQueries) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	queries := c.recorder.All()
	if len(queries) == 0 {
		return map[string]any{}, nil
	}
	return map[string]any{"queries": queries}, nil
}

func (c *StorageQueries) Render(r view.Renderer, data map[string]any) (string, error) {
	return renderTables(r, &view.Table{
		Rows:    view.Rows(data["queries"]),
		Title:   "Storage Queries",
		Columns: []string{"time (ms)", "statement", "bindings", "item", "storage"},
	})
}

func (c *StorageQueries) Data(data map[string]any) profiler.Summary {
	return countSummary(count(data["queries"]), "%d queries executed")
}
