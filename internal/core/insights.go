package core

import "github.com/shopspring/decimal"

// Restock strategy goals accepted by the insights service.
const (
	GoalProfit   = "profit"
	GoalVolume   = "volume"
	GoalBalanced = "balanced"
)

// RestockProduct carries the inventory and sales figures the insights
// service needs for one product.
type RestockProduct struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	Stock         int             `json:"stock"`
	Category      string          `json:"category,omitempty"`
	AvgDailySales float64         `json:"avg_daily_sales"`
	ProfitMargin  float64         `json:"profit_margin"`
	MinOrderQty   int             `json:"min_order_qty,omitempty"`
}

// RestockRequest asks the insights service for a restocking plan within a
// budget, optimized for the given goal.
type RestockRequest struct {
	ShopID      string           `json:"shop_id"`
	Budget      decimal.Decimal  `json:"budget"`
	Goal        string           `json:"goal"`
	Products    []RestockProduct `json:"products"`
	RestockDays int              `json:"restock_days,omitempty"`
}

// RestockItem is one recommended purchase in a restocking plan.
type RestockItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Reason    string          `json:"reason,omitempty"`
}

// RestockPlan is the computed strategy returned by the insights service.
type RestockPlan struct {
	Strategy  string          `json:"strategy"`
	ShopID    string          `json:"shop_id"`
	Budget    decimal.Decimal `json:"budget"`
	Items     []RestockItem   `json:"items"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Reasoning string          `json:"reasoning,omitempty"`
}
