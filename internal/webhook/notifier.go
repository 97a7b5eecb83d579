// Package webhook emits fire-and-forget notifications to the integration
// backend. Delivery is best effort by design: failures are logged and
// dropped so a downstream outage can never block the primary flow.
package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/core"
	"storefront/pkg/concurrency"
)

// Notifier posts webhook events through a small bounded worker pool. The
// HTTP client is deliberately plain: no retries, short timeout.
type Notifier struct {
	baseURL string
	apiKey  config.Secret
	client  *http.Client
	pool    *concurrency.WorkerPool
	logger  core.ILogger
}

// NewNotifier creates a Notifier. An empty baseURL disables emission.
func NewNotifier(baseURL string, apiKey config.Secret, logger core.ILogger) *Notifier {
	log := logger.WithField("component", "webhook_notifier")
	return &Notifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
		pool: concurrency.NewWorkerPool(concurrency.PoolConfig{
			Name:        "WebhookPool",
			MaxWorkers:  4,
			MaxCapacity: 64,
			NonBlocking: true,
		}, log),
		logger: log,
	}
}

// Close drains the pool.
func (n *Notifier) Close() {
	n.pool.Stop()
}

// ProductCreated announces a new product.
func (n *Notifier) ProductCreated(p core.Product) {
	n.emit("/api/webhooks/products/created", map[string]string{
		"productId": p.ID, "shopId": p.ShopID,
	})
}

// ProductUpdated announces a product change.
func (n *Notifier) ProductUpdated(p core.Product) {
	n.emit("/api/webhooks/products/updated", map[string]string{
		"productId": p.ID, "shopId": p.ShopID,
	})
}

// ProductDeleted announces a product removal.
func (n *Notifier) ProductDeleted(productID, shopID string) {
	n.emit("/api/webhooks/products/deleted", map[string]string{
		"productId": productID, "shopId": shopID,
	})
}

// OrderCreated announces a new order.
func (n *Notifier) OrderCreated(o core.Order) {
	n.emit("/api/webhooks/orders/created", map[string]string{
		"orderId": o.ID, "shopId": o.ShopID,
	})
}

// OrderUpdated announces an order change.
func (n *Notifier) OrderUpdated(o core.Order) {
	n.emit("/api/webhooks/orders/updated", map[string]string{
		"orderId": o.ID, "shopId": o.ShopID,
	})
}

// OrderStatusChanged announces an order status transition.
func (n *Notifier) OrderStatusChanged(orderID, shopID string, status core.OrderStatus) {
	n.emit("/api/webhooks/orders/status-changed", map[string]string{
		"orderId": orderID, "shopId": shopID, "status": string(status),
	})
}

// InventoryUpdated announces a stock level change.
func (n *Notifier) InventoryUpdated(productID, shopID string, stock int) {
	n.emit("/api/webhooks/inventory/updated", map[string]interface{}{
		"productId": productID, "shopId": shopID, "stock": stock,
	})
}

func (n *Notifier) emit(path string, payload interface{}) {
	if n.baseURL == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("Webhook payload not serializable", "path", path, "error", err)
		return
	}

	err = n.pool.Submit(func() {
		n.deliver(path, body)
	})
	if err != nil {
		// Pool saturated: the notification is dropped, same as any other
		// delivery failure.
		n.logger.Warn("Webhook dropped, pool full", "path", path)
	}
}

func (n *Notifier) deliver(path string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, n.baseURL+path, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("Webhook request build failed", "path", path, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("X-API-Key", string(n.apiKey))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("Webhook delivery failed", "path", path, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.Warn("Webhook rejected", "path", path, "status", resp.StatusCode)
	}
}
