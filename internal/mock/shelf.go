package mock

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"storefront/internal/core"
)

// Default at-risk thresholds, applied when the request leaves them zero.
const (
	defaultLowStock        = 10
	defaultExpiryDays      = 7
	defaultSlowWindow      = 30
	defaultSlowThreshold   = 0.5
	defaultForecastPeriods = 14
)

func (b *Backend) handleAtRisk(w http.ResponseWriter, r *http.Request) {
	var req core.AtRiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Inventory) == 0 {
		respondErr(w, http.StatusBadRequest, "malformed request")
		return
	}

	th := core.ShelfThresholds{
		LowStock:            defaultLowStock,
		ExpiryDays:          defaultExpiryDays,
		SlowMovingWindow:    defaultSlowWindow,
		SlowMovingThreshold: defaultSlowThreshold,
	}
	if req.Thresholds != nil {
		if req.Thresholds.LowStock > 0 {
			th.LowStock = req.Thresholds.LowStock
		}
		if req.Thresholds.ExpiryDays > 0 {
			th.ExpiryDays = req.Thresholds.ExpiryDays
		}
		if req.Thresholds.SlowMovingWindow > 0 {
			th.SlowMovingWindow = req.Thresholds.SlowMovingWindow
		}
		if req.Thresholds.SlowMovingThreshold > 0 {
			th.SlowMovingThreshold = req.Thresholds.SlowMovingThreshold
		}
	}

	avg := avgDailySales(req.Sales, th.SlowMovingWindow)

	var flagged []core.AtRiskItem
	for _, item := range req.Inventory {
		var reasons []string
		score := 0.0
		if item.Quantity < th.LowStock {
			reasons = append(reasons, core.RiskLowStock)
			score += 0.5
		}
		if expiring(item.ExpiryDate, th.ExpiryDays) {
			reasons = append(reasons, core.RiskNearExpiry)
			score += 0.3
		}
		if avg[item.ProductID] < th.SlowMovingThreshold {
			reasons = append(reasons, core.RiskSlowMoving)
			score += 0.2
		}
		if len(reasons) == 0 {
			continue
		}
		flagged = append(flagged, core.AtRiskItem{
			ProductID:         item.ProductID,
			SKU:               item.SKU,
			Name:              item.Name,
			Reasons:           reasons,
			Score:             math.Min(score, 1),
			CurrentQuantity:   item.Quantity,
			AvgDailySales:     avg[item.ProductID],
			RecommendedAction: shelfAction(item, reasons, avg[item.ProductID], th),
		})
	}
	sort.SliceStable(flagged, func(i, j int) bool { return flagged[i].Score > flagged[j].Score })

	respond(w, core.AtRiskReport{
		AtRisk: flagged,
		Meta: map[string]interface{}{
			"shop_id":        req.ShopID,
			"total_products": len(req.Inventory),
			"flagged_count":  len(flagged),
		},
	})
}

func avgDailySales(sales []core.SalesRecord, window int) map[string]float64 {
	totals := make(map[string]float64)
	for _, rec := range sales {
		totals[rec.ProductID] += rec.Qty
	}
	for id := range totals {
		totals[id] /= float64(window)
	}
	return totals
}

func expiring(expiryDate string, withinDays int) bool {
	if expiryDate == "" {
		return false
	}
	exp, err := time.Parse("2006-01-02", expiryDate)
	if err != nil {
		return false
	}
	return exp.Before(time.Now().AddDate(0, 0, withinDays))
}

func shelfAction(item core.ShelfItem, reasons []string, avg float64, th core.ShelfThresholds) core.ShelfAction {
	for _, reason := range reasons {
		switch reason {
		case core.RiskLowStock:
			qty := int(math.Ceil(avg*float64(th.SlowMovingWindow))) - item.Quantity
			if qty < 1 {
				qty = th.LowStock - item.Quantity
			}
			return core.ShelfAction{
				ActionType: "restock",
				RestockQty: qty,
				Reasoning:  fmt.Sprintf("stock %d is below the threshold of %d", item.Quantity, th.LowStock),
			}
		case core.RiskNearExpiry:
			return core.ShelfAction{
				ActionType: "clearance",
				Reasoning:  fmt.Sprintf("expires within %d days", th.ExpiryDays),
			}
		}
	}
	return core.ShelfAction{
		ActionType: "discount",
		Reasoning:  fmt.Sprintf("average daily sales %.2f is below %.2f", avg, th.SlowMovingThreshold),
	}
}

func (b *Backend) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req core.ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Sales) == 0 {
		respondErr(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.ProductID == "" && len(req.ProductList) == 0 {
		respondErr(w, http.StatusBadRequest, "either product_id or product_list must be provided")
		return
	}
	periods := req.Periods
	if periods <= 0 {
		periods = defaultForecastPeriods
	}

	byProduct := make(map[string][]core.SalesRecord)
	for _, rec := range req.Sales {
		byProduct[rec.ProductID] = append(byProduct[rec.ProductID], rec)
	}

	var forecasts []core.ProductForecast
	if req.ProductID != "" {
		records := byProduct[req.ProductID]
		if len(records) < 2 {
			respondErr(w, http.StatusBadRequest, "Insufficient data for product "+req.ProductID)
			return
		}
		forecasts = append(forecasts, forecastProduct(req.ProductID, records, periods))
	} else {
		// Batch mode skips products without enough history.
		for _, id := range req.ProductList {
			if records := byProduct[id]; len(records) >= 2 {
				forecasts = append(forecasts, forecastProduct(id, records, periods))
			}
		}
	}

	respond(w, core.ForecastReport{
		Forecasts: forecasts,
		Meta: map[string]interface{}{
			"shop_id":        req.ShopID,
			"total_products": len(forecasts),
		},
	})
}

// forecastProduct projects the moving average of the historical quantities
// flat over the requested horizon, with a fixed ±20% band.
func forecastProduct(productID string, records []core.SalesRecord, periods int) core.ProductForecast {
	total := 0.0
	for _, rec := range records {
		total += rec.Qty
	}
	avg := total / float64(len(records))

	points := make([]core.ForecastPoint, 0, periods)
	for i := 1; i <= periods; i++ {
		points = append(points, core.ForecastPoint{
			Date:         time.Now().AddDate(0, 0, i).Format("2006-01-02"),
			PredictedQty: avg,
			LowerCI:      avg * 0.8,
			UpperCI:      avg * 1.2,
		})
	}
	return core.ProductForecast{
		ProductID:    productID,
		Predictions:  points,
		Method:       core.ForecastMovingAvg,
		ModelVersion: core.ForecastMovingAvg + "-v1",
	}
}
