package storage_test

import (
	"context"
	"testing"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openProducts(t *testing.T) *storage.SQLite {
	t.Helper()

	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.DB().Exec(`CREATE TABLE products (id INTEGER PRIMARY KEY, sku TEXT, price REAL)`)
	require.NoError(t, err)
	return db
}

func TestSQLiteInsertAndFind(t *testing.T) {
	ctx := context.Background()
	db := openProducts(t)

	item, err := db.New().Table("products").Insert(ctx, storage.Item{"sku": "pen", "price": 1.5})
	require.NoError(t, err)
	assert.EqualValues(t, 1, item["id"])

	st := db.New().Table("products")
	found, err := st.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "pen", found["sku"])

	g := st.Grammar()
	require.NotNil(t, g)
	assert.Equal(t, `SELECT * FROM "products" WHERE "id" = ? LIMIT 1`, g.Statement)
	assert.Equal(t, []any{1}, g.Bindings)

	missing, err := db.New().Table("products").Find(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteQueries(t *testing.T) {
	ctx := context.Background()
	db := openProducts(t)

	n, err := db.New().Table("products").InsertItems(ctx, []storage.Item{
		{"sku": "pen", "price": 1.5},
		{"sku": "ink", "price": 4.0},
		{"sku": "pad", "price": 3.0},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	items, err := db.New().Table("products").Where("price", ">", 2).OrderBy("price", "desc").Get(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "ink", items[0]["sku"])

	count, err := db.New().Table("products").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	sku, err := db.New().Table("products").Where("price", "<", 2).Value(ctx, "sku")
	require.NoError(t, err)
	assert.Equal(t, "pen", sku)

	column, err := db.New().Table("products").Column(ctx, "price", "sku")
	require.NoError(t, err)
	assert.Equal(t, 4.0, column["ink"])

	updated, err := db.New().Table("products").Where("sku", "=", "pad").Update(ctx, storage.Item{"price": 2.5})
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	_, err = db.New().Table("products").UpdateOrInsert(ctx, storage.Item{"sku": "cap"}, storage.Item{"price": 9.0})
	require.NoError(t, err)
	_, err = db.New().Table("products").UpdateOrInsert(ctx, storage.Item{"sku": "cap"}, storage.Item{"price": 8.0})
	require.NoError(t, err)

	price, err := db.New().Table("products").Where("sku", "=", "cap").Value(ctx, "price")
	require.NoError(t, err)
	assert.Equal(t, 8.0, price)

	deleted, err := db.New().Table("products").Where("price", ">=", 4).Delete(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}

func TestSQLiteInvalidQuery(t *testing.T) {
	ctx := context.Background()
	db := openProducts(t)

	_, err := db.New().Get(ctx)
	assert.True(t, errors.HasCode(err, storage.ErrInvalidQuery))

	_, err = db.New().Table("products").Where("sku", "; DROP", "x").Get(ctx)
	assert.True(t, errors.HasCode(err, storage.ErrInvalidQuery))

	_, err = db.New().Table("missing").Get(ctx)
	assert.True(t, errors.HasCode(err, storage.ErrQueryFailed))
}

func TestSQLiteTransaction(t *testing.T) {
	ctx := context.Background()
	db := openProducts(t)

	err := db.New().Table("products").Transaction(ctx, func(tx storage.Storage) error {
		if _, err := tx.Insert(ctx, storage.Item{"sku": "pen"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	count, err := db.New().Table("products").Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = db.New().Table("products").Transaction(ctx, func(tx storage.Storage) error {
		_, err := tx.Insert(ctx, storage.Item{"sku": "pen"})
		return err
	})
	require.NoError(t, err)

	count, err = db.New().Table("products").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegistry(t *testing.T) {
	db := openProducts(t)
	opened := 0

	registry := storage.NewRegistry().
		Add("main", db).
		Register("lazy", func() (storage.Storage, error) {
			opened++
			return storage.OpenSQLite(":memory:")
		}).
		AddDefault("primary", "main")

	assert.Equal(t, []string{"lazy", "main"}, registry.Names())
	assert.True(t, registry.Has("lazy"))

	_, err := registry.Get("lazy")
	require.NoError(t, err)
	_, err = registry.Get("lazy")
	require.NoError(t, err)
	assert.Equal(t, 1, opened)

	primary, err := registry.Default("primary")
	require.NoError(t, err)
	assert.NotSame(t, db, primary)

	_, err = registry.Get("nope")
	assert.True(t, errors.HasCode(err, storage.ErrDatabaseNotFound))
	_, err = registry.Default("nope")
	assert.True(t, errors.HasCode(err, storage.ErrDatabaseNotFound))

	assert.Equal(t, map[string]string{"primary": "main"}, registry.Defaults())
	require.NoError(t, registry.Close())
}
