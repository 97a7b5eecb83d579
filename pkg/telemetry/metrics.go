package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricAPIRequestsTotal   = "storefront_api_requests_total"
	MetricAPIErrorsTotal     = "storefront_api_errors_total"
	MetricLiveEventsTotal    = "storefront_live_events_total"
	MetricLiveReconnects     = "storefront_live_reconnects_total"
	MetricLiveConnected      = "storefront_live_connected"
	MetricRefetchesTotal     = "storefront_refetches_total"
	MetricCartMutationsTotal = "storefront_cart_mutations_total"
	MetricCartSelectedTotal  = "storefront_cart_selected_value"
	MetricWebhooksSentTotal  = "storefront_webhooks_sent_total"
	MetricWebhooksFailed     = "storefront_webhooks_failed_total"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	APIRequestsTotal   metric.Int64Counter
	APIErrorsTotal     metric.Int64Counter
	LiveEventsTotal    metric.Int64Counter
	LiveReconnects     metric.Int64Counter
	LiveConnectedGauge metric.Int64ObservableGauge
	RefetchesTotal     metric.Int64Counter
	CartMutationsTotal metric.Int64Counter
	CartSelectedValue  metric.Float64ObservableGauge
	WebhooksSentTotal  metric.Int64Counter
	WebhooksFailed     metric.Int64Counter

	// State for observable gauges
	mu                sync.RWMutex
	liveConnectedMap  map[string]int64
	cartSelectedValue float64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			liveConnectedMap: make(map[string]int64),
		}
		// Instruments are created in InitMetrics
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.APIRequestsTotal, err = meter.Int64Counter(MetricAPIRequestsTotal, metric.WithDescription("Total storefront API requests"))
	if err != nil {
		return err
	}

	m.APIErrorsTotal, err = meter.Int64Counter(MetricAPIErrorsTotal, metric.WithDescription("Total storefront API request failures"))
	if err != nil {
		return err
	}

	m.LiveEventsTotal, err = meter.Int64Counter(MetricLiveEventsTotal, metric.WithDescription("Dashboard update events relayed to consumers"))
	if err != nil {
		return err
	}

	m.LiveReconnects, err = meter.Int64Counter(MetricLiveReconnects, metric.WithDescription("Live channel reconnect attempts"))
	if err != nil {
		return err
	}

	m.RefetchesTotal, err = meter.Int64Counter(MetricRefetchesTotal, metric.WithDescription("Debounced refetches actually executed"))
	if err != nil {
		return err
	}

	m.CartMutationsTotal, err = meter.Int64Counter(MetricCartMutationsTotal, metric.WithDescription("Cart mutations persisted"))
	if err != nil {
		return err
	}

	m.WebhooksSentTotal, err = meter.Int64Counter(MetricWebhooksSentTotal, metric.WithDescription("Webhook notifications delivered"))
	if err != nil {
		return err
	}

	m.WebhooksFailed, err = meter.Int64Counter(MetricWebhooksFailed, metric.WithDescription("Webhook notifications dropped after delivery failure"))
	if err != nil {
		return err
	}

	m.LiveConnectedGauge, err = meter.Int64ObservableGauge(MetricLiveConnected,
		metric.WithDescription("Whether a shop's live channel is connected (1/0)"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for shop, v := range m.liveConnectedMap {
				o.Observe(v, metric.WithAttributes(attribute.String("shop_id", shop)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.CartSelectedValue, err = meter.Float64ObservableGauge(MetricCartSelectedTotal,
		metric.WithDescription("Current total price of selected cart items"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			o.Observe(m.cartSelectedValue)
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// SetLiveConnected records the connectivity state for a shop's live channel.
func (m *MetricsHolder) SetLiveConnected(shopID string, connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if connected {
		m.liveConnectedMap[shopID] = 1
	} else {
		m.liveConnectedMap[shopID] = 0
	}
}

// LiveConnected reports the recorded connectivity state for a shop.
func (m *MetricsHolder) LiveConnected(shopID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.liveConnectedMap[shopID] == 1
}

// SetCartSelectedValue records the current selected-items total.
func (m *MetricsHolder) SetCartSelectedValue(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cartSelectedValue = v
}
