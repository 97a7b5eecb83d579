// Package cart is the authoritative client-side model of the buyer's
// pending purchase selection. Every mutation writes a full snapshot through
// the configured Store; a snapshot that cannot be read back yields an empty
// cart rather than an error.
package cart

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/core"
	apperrors "storefront/pkg/errors"
	"storefront/pkg/telemetry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store persists cart snapshots. Load returns (nil, nil) when no snapshot
// exists; it returns an error for unreadable or corrupt snapshots, which
// the cart treats as "start empty".
type Store interface {
	Save(items []core.CartItem) error
	Load() ([]core.CartItem, error)
}

// Cart holds the line items. Mutations are serialized by a mutex so the
// console goroutines can share one instance.
type Cart struct {
	mu     sync.Mutex
	items  []core.CartItem
	store  Store
	logger core.ILogger
}

// New creates a cart backed by store, loading any prior snapshot.
func New(store Store, logger core.ILogger) *Cart {
	c := &Cart{
		store:  store,
		logger: logger.WithField("component", "cart"),
	}
	items, err := store.Load()
	if err != nil {
		c.logger.Warn("Cart snapshot unreadable, starting empty", "error", err)
		items = nil
	}
	c.items = items
	return c
}

// Add puts quantity units of product into the cart as a new, selected line
// item and returns it. Quantity must be at least 1 and may not exceed the
// product's stock.
func (c *Cart) Add(p core.Product, quantity int) (core.CartItem, error) {
	if quantity < 1 {
		return core.CartItem{}, fmt.Errorf("%w: quantity must be at least 1", apperrors.ErrInvalidInput)
	}
	if quantity > p.Stock {
		return core.CartItem{}, apperrors.ErrInsufficientStock
	}

	item := core.CartItem{
		ID:        newItemID(p.ID),
		ProductID: p.ID,
		ShopID:    p.ShopID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		Selected:  true,
		ImageURL:  p.ImageURL,
		AddedAt:   time.Now(),
	}

	c.mu.Lock()
	c.items = append(c.items, item)
	c.persistLocked()
	c.mu.Unlock()
	return item, nil
}

// newItemID builds the synthetic line-item identifier: product id, creation
// timestamp, random suffix.
func newItemID(productID string) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s-%d-%s", productID, time.Now().UnixNano(), suffix)
}

// UpdateQuantity sets the quantity of one line item.
func (c *Cart) UpdateQuantity(id string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", apperrors.ErrInvalidInput)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = quantity
			c.persistLocked()
			return nil
		}
	}
	return apperrors.ErrItemNotFound
}

// SetSelected toggles one line item's participation in the checkout total.
func (c *Cart) SetSelected(id string, selected bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Selected = selected
			c.persistLocked()
			return nil
		}
	}
	return apperrors.ErrItemNotFound
}

// Remove deletes one line item.
func (c *Cart) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.persistLocked()
			return nil
		}
	}
	return apperrors.ErrItemNotFound
}

// RemoveSelected deletes every selected line item, typically after a
// successful order placement.
func (c *Cart) RemoveSelected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0]
	for _, item := range c.items {
		if !item.Selected {
			kept = append(kept, item)
		}
	}
	c.items = kept
	c.persistLocked()
}

// ToggleShop sets every line item of the shop to the same selection value.
func (c *Cart) ToggleShop(shopID string, selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ShopID == shopID {
			c.items[i].Selected = selected
		}
	}
	c.persistLocked()
}

// ToggleAll sets every line item to the same selection value.
func (c *Cart) ToggleAll(selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		c.items[i].Selected = selected
	}
	c.persistLocked()
}

// TotalItems returns the summed quantity over selected line items.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, item := range c.items {
		if item.Selected {
			total += item.Quantity
		}
	}
	return total
}

// TotalPrice returns the summed unitPrice x quantity over selected items.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLocked()
}

func (c *Cart) totalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		if item.Selected {
			total = total.Add(item.Subtotal())
		}
	}
	return total
}

// ShopSubtotal returns the selected-items total for one shop.
func (c *Cart) ShopSubtotal(shopID string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, item := range c.items {
		if item.Selected && item.ShopID == shopID {
			total = total.Add(item.Subtotal())
		}
	}
	return total
}

// GroupByShop returns the selected line items grouped per shop, the shape
// checkout needs to place one order per shop.
func (c *Cart) GroupByShop() map[string][]core.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	groups := make(map[string][]core.CartItem)
	for _, item := range c.items {
		if item.Selected {
			groups[item.ShopID] = append(groups[item.ShopID], item)
		}
	}
	return groups
}

// Items returns a copy of all line items, oldest first.
func (c *Cart) Items() []core.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.CartItem, len(c.items))
	copy(out, c.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out
}

// Len returns the number of line items, selected or not.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// persistLocked writes a full snapshot. Persistence failures are logged and
// otherwise ignored; the in-memory cart stays authoritative for the session.
func (c *Cart) persistLocked() {
	snapshot := make([]core.CartItem, len(c.items))
	copy(snapshot, c.items)
	if err := c.store.Save(snapshot); err != nil {
		c.logger.Warn("Failed to persist cart snapshot", "error", err)
	}
	total, _ := c.totalLocked().Float64()
	telemetry.GetGlobalMetrics().SetCartSelectedValue(total)
}
