// Package core defines the shared domain types for the storefront client toolkit.
package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// User roles as reported by the backend.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// User is the authenticated account returned by the auth endpoints.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	ShopID string `json:"shopId,omitempty"`
}

// IsSeller reports whether the account may use seller-only entry points.
func (u *User) IsSeller() bool {
	return u != nil && u.Role == RoleSeller
}

// Shop is a seller's storefront. It scopes products, orders and live-channel
// membership.
type Shop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is a catalog entry owned by a shop.
type Product struct {
	ID          string          `json:"id"`
	ShopID      string          `json:"shopId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl,omitempty"`
}

// CartItem is one buyer-selected product pending checkout.
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	ShopID    string          `json:"shopId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Selected  bool            `json:"isSelected"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	AddedAt   time.Time       `json:"addedAt"`
}

// Subtotal returns unit price times quantity for this line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatus is the lifecycle state of an order. Transitions are driven by
// the backend; the client only mirrors them.
type OrderStatus string

const (
	StatusToPay        OrderStatus = "to-pay"
	StatusToShip       OrderStatus = "to-ship"
	StatusToReceive    OrderStatus = "to-receive"
	StatusCompleted    OrderStatus = "completed"
	StatusCancelled    OrderStatus = "cancelled"
	StatusReturnRefund OrderStatus = "return-refund"
)

// CanTransitionTo reports whether next is a valid forward transition from s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case StatusToPay:
		return next == StatusToShip || next == StatusCancelled
	case StatusToShip:
		return next == StatusToReceive || next == StatusCancelled || next == StatusReturnRefund
	case StatusToReceive:
		return next == StatusCompleted || next == StatusReturnRefund
	default:
		// completed, cancelled and return-refund are terminal
		return false
	}
}

// OrderItem is an immutable product/price snapshot captured at order creation.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Order is the client-local mirror of a backend order.
type Order struct {
	ID        string          `json:"id"`
	ShopID    string          `json:"shopId"`
	BuyerID   string          `json:"buyerId,omitempty"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// IncomeSummary is the seller income report for one shop.
type IncomeSummary struct {
	ShopID       string          `json:"shopId"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	PendingTotal decimal.Decimal `json:"pendingTotal"`
	OrderCount   int             `json:"orderCount"`
}

// DashboardStats is the seller dashboard snapshot for one shop.
type DashboardStats struct {
	ShopID        string          `json:"shopId"`
	ProductCount  int             `json:"productCount"`
	OrderCount    int             `json:"orderCount"`
	PendingOrders int             `json:"pendingOrders"`
	LowStockCount int             `json:"lowStockCount"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
}

// Dashboard update event types pushed over the live channel.
const (
	EventNewOrder        = "new_order"
	EventInventoryUpdate = "inventory_update"
	EventOrderUpdated    = "order_updated"
)

// Live channel control events sent by the client.
const (
	ControlJoinShop  = "join_shop"
	ControlLeaveShop = "leave_shop"
)

// DashboardEvent is a server-pushed notification that something relevant to a
// shop's live views changed. The payload stays opaque to the subscription
// layer; consumers decode it if they need more than the type.
type DashboardEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OrderStatusChange is the payload carried by order_updated events.
type OrderStatusChange struct {
	OrderID string      `json:"orderId"`
	ShopID  string      `json:"shopId"`
	Status  OrderStatus `json:"status"`
}
