// Package orders keeps a client-local mirror of backend orders. Status
// transitions come only from pushed events or refetched server state; there
// is no client-driven transition API.
package orders

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"storefront/internal/core"
)

// Mirror is the in-memory order set, keyed by order ID.
type Mirror struct {
	mu     sync.RWMutex
	orders map[string]core.Order
	logger core.ILogger
}

// NewMirror creates an empty mirror.
func NewMirror(logger core.ILogger) *Mirror {
	return &Mirror{
		orders: make(map[string]core.Order),
		logger: logger.WithField("component", "order_mirror"),
	}
}

// Replace swaps the entire mirror for freshly fetched server state. Last
// write wins; there is no staleness check (refetches are human-paced).
func (m *Mirror) Replace(list []core.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = make(map[string]core.Order, len(list))
	for _, o := range list {
		m.orders[o.ID] = o
	}
}

// Get returns one order by ID.
func (m *Mirror) Get(id string) (core.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	return o, ok
}

// List returns all orders, newest first.
func (m *Mirror) List() []core.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Len returns the number of mirrored orders.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// ApplyEvent folds one dashboard update event into the mirror. new_order
// events carrying a full order insert it; order_updated events advance the
// status when the transition is legal. Anything else is ignored.
func (m *Mirror) ApplyEvent(ev core.DashboardEvent) {
	switch ev.Type {
	case core.EventNewOrder:
		var order core.Order
		if err := json.Unmarshal(ev.Payload, &order); err != nil || order.ID == "" {
			// Payload without a full order still signals "refetch"; nothing
			// to fold in locally.
			return
		}
		m.mu.Lock()
		if _, exists := m.orders[order.ID]; !exists {
			m.orders[order.ID] = order
		}
		m.mu.Unlock()

	case core.EventOrderUpdated:
		var change core.OrderStatusChange
		if err := json.Unmarshal(ev.Payload, &change); err != nil || change.OrderID == "" {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		order, ok := m.orders[change.OrderID]
		if !ok {
			m.logger.Debug("Status change for unknown order ignored", "order_id", change.OrderID)
			return
		}
		if order.Status == change.Status {
			return
		}
		if !order.Status.CanTransitionTo(change.Status) {
			m.logger.Warn("Illegal order status transition ignored",
				"order_id", change.OrderID, "from", order.Status, "to", change.Status)
			return
		}
		order.Status = change.Status
		order.UpdatedAt = time.Now()
		m.orders[change.OrderID] = order
	}
}
