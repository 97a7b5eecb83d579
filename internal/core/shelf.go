package core

import "github.com/shopspring/decimal"

// Risk flags attached to at-risk shelf items.
const (
	RiskLowStock   = "low_stock"
	RiskNearExpiry = "near_expiry"
	RiskSlowMoving = "slow_moving"
)

// Forecast methods accepted by the insights service. The client always lets
// the service pick unless told otherwise.
const (
	ForecastAuto      = "auto"
	ForecastMovingAvg = "moving_avg"
)

// ShelfItem is one product's inventory snapshot sent for shelf analysis.
type ShelfItem struct {
	ProductID  string          `json:"product_id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	ExpiryDate string          `json:"expiry_date,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Categories []string        `json:"categories,omitempty"`
}

// SalesRecord is one historical sales data point.
type SalesRecord struct {
	ProductID string  `json:"product_id"`
	Date      string  `json:"date"`
	Qty       float64 `json:"qty"`
	Revenue   float64 `json:"revenue,omitempty"`
}

// ShelfThresholds tunes at-risk detection. Zero values fall back to the
// service defaults.
type ShelfThresholds struct {
	LowStock            int     `json:"low_stock,omitempty"`
	ExpiryDays          int     `json:"expiry_days,omitempty"`
	SlowMovingWindow    int     `json:"slow_moving_window,omitempty"`
	SlowMovingThreshold float64 `json:"slow_moving_threshold,omitempty"`
}

// AtRiskRequest asks the insights service which shelf items need attention.
type AtRiskRequest struct {
	ShopID     string           `json:"shop_id"`
	Inventory  []ShelfItem      `json:"inventory"`
	Sales      []SalesRecord    `json:"sales"`
	Thresholds *ShelfThresholds `json:"thresholds,omitempty"`
}

// ShelfAction is the recommended response to an at-risk item.
type ShelfAction struct {
	ActionType string `json:"action_type"`
	RestockQty int    `json:"restock_qty,omitempty"`
	Reasoning  string `json:"reasoning"`
}

// AtRiskItem is one flagged product with its risk metrics.
type AtRiskItem struct {
	ProductID         string      `json:"product_id"`
	SKU               string      `json:"sku"`
	Name              string      `json:"name"`
	Reasons           []string    `json:"reasons"`
	Score             float64     `json:"score"`
	CurrentQuantity   int         `json:"current_quantity"`
	AvgDailySales     float64     `json:"avg_daily_sales"`
	RecommendedAction ShelfAction `json:"recommended_action"`
}

// AtRiskReport is the at-risk analysis result, flagged items sorted by score
// descending.
type AtRiskReport struct {
	AtRisk []AtRiskItem           `json:"at_risk"`
	Meta   map[string]interface{} `json:"meta"`
}

// ForecastRequest asks for a demand forecast over upcoming periods. Exactly
// one of ProductID or ProductList must be set.
type ForecastRequest struct {
	ShopID      string        `json:"shop_id"`
	ProductID   string        `json:"product_id,omitempty"`
	ProductList []string      `json:"product_list,omitempty"`
	Sales       []SalesRecord `json:"sales"`
	Periods     int           `json:"periods,omitempty"`
	Model       string        `json:"model,omitempty"`
}

// ForecastPoint is one predicted data point.
type ForecastPoint struct {
	Date         string  `json:"date"`
	PredictedQty float64 `json:"predicted_qty"`
	LowerCI      float64 `json:"lower_ci,omitempty"`
	UpperCI      float64 `json:"upper_ci,omitempty"`
}

// ProductForecast carries the prediction series for one product.
type ProductForecast struct {
	ProductID    string          `json:"product_id"`
	Predictions  []ForecastPoint `json:"predictions"`
	Method       string          `json:"method"`
	ModelVersion string          `json:"model_version"`
}

// ForecastReport is the (possibly batch) forecast result.
type ForecastReport struct {
	Forecasts []ProductForecast      `json:"forecasts"`
	Meta      map[string]interface{} `json:"meta"`
}
