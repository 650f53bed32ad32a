package storage

import "context"

// Item is one row keyed by column.
type Item map[string]any

// Grammar describes the last query a storage executed.
type Grammar struct {
	Statement string
	Bindings  []any
	Item      Item
}

// Storage is a chainable query builder. Builder calls configure the next
// query; finalizing calls execute it and reset everything but the table.
type Storage interface {
	New() Storage
	Table(name string) Storage
	TableName() string
	Select(columns ...string) Storage
	Where(column, operator string, value any) Storage
	Join(table, first, operator, second string) Storage
	LeftJoin(table, first, operator, second string) Storage
	OrderBy(column, direction string) Storage
	Limit(count, offset int) Storage
	Transaction(ctx context.Context, fn func(tx Storage) error) error
	// Grammar returns the last executed query, or nil.
	Grammar() *Grammar

	Find(ctx context.Context, id any) (Item, error)
	First(ctx context.Context) (Item, error)
	Get(ctx context.Context) ([]Item, error)
	Value(ctx context.Context, column string) (any, error)
	Column(ctx context.Context, column, key string) (Item, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, item Item) (Item, error)
	InsertItems(ctx context.Context, items []Item) (int64, error)
	Update(ctx context.Context, item Item) (int64, error)
	UpdateOrInsert(ctx context.Context, attributes, item Item) (Item, error)
	Delete(ctx context.Context) (int64, error)
}

// Databases resolves storages by name or by default role.
type Databases interface {
	Get(name string) (Storage, error)
	Has(name string) bool
	Names() []string
	Default(role string) (Storage, error)
	Defaults() map[string]string
}
