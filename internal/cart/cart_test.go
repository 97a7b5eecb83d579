package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/core"
	apperrors "storefront/pkg/errors"
	"storefront/pkg/logging"
)

// memStore is an in-memory Store double that records every snapshot.
type memStore struct {
	snapshots [][]core.CartItem
	loadItems []core.CartItem
	loadErr   error
}

func (s *memStore) Save(items []core.CartItem) error {
	s.snapshots = append(s.snapshots, items)
	return nil
}

func (s *memStore) Load() ([]core.CartItem, error) {
	return s.loadItems, s.loadErr
}

func newTestCart(t *testing.T) (*Cart, *memStore) {
	t.Helper()
	logger, _ := logging.NewZapLogger("ERROR")
	store := &memStore{}
	return New(store, logger), store
}

func product(id, shopID string, price string, stock int) core.Product {
	return core.Product{
		ID:     id,
		ShopID: shopID,
		Name:   "product " + id,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
	}
}

func TestAddCreatesSelectedItem(t *testing.T) {
	c, store := newTestCart(t)

	item, err := c.Add(product("p1", "s1", "100", 10), 2)
	require.NoError(t, err)

	assert.True(t, item.Selected)
	assert.Equal(t, 2, item.Quantity)
	assert.Contains(t, item.ID, "p1-")
	assert.Equal(t, 1, c.Len())
	assert.Len(t, store.snapshots, 1, "every mutation persists a snapshot")
}

func TestAddRejectsBadQuantity(t *testing.T) {
	c, _ := newTestCart(t)

	_, err := c.Add(product("p1", "s1", "100", 10), 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = c.Add(product("p1", "s1", "100", 3), 4)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	assert.Equal(t, 0, c.Len())
}

func TestItemIDsAreUniquePerAdd(t *testing.T) {
	c, _ := newTestCart(t)
	p := product("p1", "s1", "100", 10)

	a, err := c.Add(p, 1)
	require.NoError(t, err)
	b, err := c.Add(p, 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, c.Len())
}

func TestTotalsFollowSelection(t *testing.T) {
	c, _ := newTestCart(t)

	selected, err := c.Add(product("p1", "s1", "100", 10), 2)
	require.NoError(t, err)
	other, err := c.Add(product("p2", "s1", "50", 10), 1)
	require.NoError(t, err)
	require.NoError(t, c.SetSelected(other.ID, false))

	assert.Equal(t, "200", c.TotalPrice().String())
	assert.Equal(t, 2, c.TotalItems())

	require.NoError(t, c.SetSelected(other.ID, true))
	assert.Equal(t, "250", c.TotalPrice().String())
	assert.Equal(t, 3, c.TotalItems())

	require.NoError(t, c.SetSelected(selected.ID, false))
	assert.Equal(t, "50", c.TotalPrice().String())
}

func TestUpdateQuantity(t *testing.T) {
	c, _ := newTestCart(t)
	item, err := c.Add(product("p1", "s1", "10", 10), 1)
	require.NoError(t, err)

	require.NoError(t, c.UpdateQuantity(item.ID, 5))
	assert.Equal(t, "50", c.TotalPrice().String())

	assert.ErrorIs(t, c.UpdateQuantity(item.ID, 0), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, c.UpdateQuantity("missing", 2), apperrors.ErrItemNotFound)
}

func TestToggleShopIsUniform(t *testing.T) {
	c, _ := newTestCart(t)
	_, err := c.Add(product("p1", "shop-a", "10", 10), 1)
	require.NoError(t, err)
	_, err = c.Add(product("p2", "shop-a", "20", 10), 1)
	require.NoError(t, err)
	_, err = c.Add(product("p3", "shop-b", "40", 10), 1)
	require.NoError(t, err)

	c.ToggleShop("shop-a", false)
	for _, item := range c.Items() {
		if item.ShopID == "shop-a" {
			assert.False(t, item.Selected)
		} else {
			assert.True(t, item.Selected)
		}
	}
	assert.Equal(t, "40", c.TotalPrice().String())

	c.ToggleShop("shop-a", true)
	assert.Equal(t, "70", c.TotalPrice().String())
}

func TestToggleAll(t *testing.T) {
	c, _ := newTestCart(t)
	_, err := c.Add(product("p1", "s1", "10", 10), 1)
	require.NoError(t, err)
	_, err = c.Add(product("p2", "s2", "20", 10), 1)
	require.NoError(t, err)

	c.ToggleAll(false)
	assert.Equal(t, 0, c.TotalItems())
	assert.True(t, c.TotalPrice().IsZero())

	c.ToggleAll(true)
	assert.Equal(t, 2, c.TotalItems())
}

func TestAddThenRemoveRestoresTotals(t *testing.T) {
	c, _ := newTestCart(t)
	_, err := c.Add(product("p1", "s1", "50", 10), 1)
	require.NoError(t, err)

	priorTotal := c.TotalPrice()
	priorCount := c.TotalItems()

	item, err := c.Add(product("p2", "s1", "100", 10), 3)
	require.NoError(t, err)
	assert.Equal(t, "350", c.TotalPrice().String())
	assert.Equal(t, 4, c.TotalItems())

	require.NoError(t, c.Remove(item.ID))
	assert.True(t, priorTotal.Equal(c.TotalPrice()), "total restored after remove")
	assert.Equal(t, priorCount, c.TotalItems())
	assert.Equal(t, 1, c.Len())
}

func TestRemoveUnknownItem(t *testing.T) {
	c, _ := newTestCart(t)
	assert.ErrorIs(t, c.Remove("missing"), apperrors.ErrItemNotFound)
}

func TestRemoveSelectedKeepsUnselected(t *testing.T) {
	c, _ := newTestCart(t)
	_, err := c.Add(product("p1", "s1", "10", 10), 1)
	require.NoError(t, err)
	kept, err := c.Add(product("p2", "s1", "20", 10), 1)
	require.NoError(t, err)
	require.NoError(t, c.SetSelected(kept.ID, false))

	c.RemoveSelected()

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].ID)
}

func TestGroupByShopOnlySelected(t *testing.T) {
	c, _ := newTestCart(t)
	_, err := c.Add(product("p1", "shop-a", "10", 10), 1)
	require.NoError(t, err)
	_, err = c.Add(product("p2", "shop-b", "20", 10), 2)
	require.NoError(t, err)
	skipped, err := c.Add(product("p3", "shop-b", "30", 10), 1)
	require.NoError(t, err)
	require.NoError(t, c.SetSelected(skipped.ID, false))

	groups := c.GroupByShop()
	require.Len(t, groups, 2)
	assert.Len(t, groups["shop-a"], 1)
	assert.Len(t, groups["shop-b"], 1)
	assert.Equal(t, "40", c.ShopSubtotal("shop-b").String())
}

func TestLoadsPriorSnapshot(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	store := &memStore{loadItems: []core.CartItem{
		{ID: "p1-1-abc", ProductID: "p1", ShopID: "s1", Quantity: 2, Selected: true,
			UnitPrice: decimal.RequireFromString("15")},
	}}

	c := New(store, logger)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "30", c.TotalPrice().String())
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	store := &memStore{loadErr: errors.New("corrupt cart snapshot")}

	c := New(store, logger)
	assert.Equal(t, 0, c.Len())

	// The cart stays usable after falling back.
	_, err := c.Add(product("p1", "s1", "10", 10), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}
