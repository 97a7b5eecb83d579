package cart

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/core"
)

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	items := []core.CartItem{
		{ID: "p1-1-abc", ProductID: "p1", ShopID: "s1", Name: "widget",
			UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2, Selected: true},
		{ID: "p2-2-def", ProductID: "p2", ShopID: "s2", Name: "gadget",
			UnitPrice: decimal.RequireFromString("5"), Quantity: 1},
	}
	require.NoError(t, store.Save(items))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "p1-1-abc", loaded[0].ID)
	assert.True(t, loaded[0].UnitPrice.Equal(items[0].UnitPrice))
}

func TestSQLiteStoreEmptyDatabase(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	items, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestSQLiteStoreSingleSnapshotRow(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	require.NoError(t, store.Save([]core.CartItem{{ID: "a"}}))
	require.NoError(t, store.Save([]core.CartItem{{ID: "b"}, {ID: "c"}}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "b", loaded[0].ID)
}

func TestSQLiteStoreChecksumMismatch(t *testing.T) {
	store, path := newTestSQLiteStore(t)
	require.NoError(t, store.Save([]core.CartItem{{ID: "a"}}))

	// Tamper with the stored document without fixing the checksum.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`UPDATE cart_snapshot SET data = '[]' WHERE id = 1`)
	require.NoError(t, err)

	_, err = store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
}
