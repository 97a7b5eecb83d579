// Package api is the typed client for the storefront REST surface. All
// response bodies pass through one envelope-normalization boundary; call
// sites only ever see domain types or *Error values.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/core"
	phttp "storefront/pkg/http"
)

// Credentials supplies the bearer token for outgoing requests and reacts to
// authorization expiry. Implemented by auth.Session.
type Credentials interface {
	Token() string
	HandleUnauthorized()
}

// Client talks to the storefront backend.
type Client struct {
	http   *phttp.Client
	logger core.ILogger
}

type bearerSigner struct {
	creds Credentials
}

func (s bearerSigner) SignRequest(req *http.Request) error {
	if s.creds == nil {
		return nil
	}
	if token := s.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// New creates a Client. creds may be nil for anonymous browsing.
func New(baseURL string, timeout time.Duration, creds Credentials, logger core.ILogger) *Client {
	hc := phttp.NewClient(baseURL, timeout, bearerSigner{creds: creds})
	if creds != nil {
		hc.SetUnauthorizedHandler(creds.HandleUnauthorized)
	}
	return &Client{
		http:   hc,
		logger: logger.WithField("component", "api_client"),
	}
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	body, err := c.http.Get(ctx, path, params)
	if err != nil {
		return normalizeError(err)
	}
	return decodeEnvelope(body, out)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := c.http.Post(ctx, path, in)
	if err != nil {
		return normalizeError(err)
	}
	return decodeEnvelope(body, out)
}

func (c *Client) put(ctx context.Context, path string, in, out interface{}) error {
	body, err := c.http.Put(ctx, path, in)
	if err != nil {
		return normalizeError(err)
	}
	return decodeEnvelope(body, out)
}

func (c *Client) patch(ctx context.Context, path string, in, out interface{}) error {
	body, err := c.http.Patch(ctx, path, in)
	if err != nil {
		return normalizeError(err)
	}
	return decodeEnvelope(body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	body, err := c.http.Delete(ctx, path)
	if err != nil {
		return normalizeError(err)
	}
	return decodeEnvelope(body, nil)
}

// --- Auth ---

// Login exchanges credentials for a token and user.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	if err := c.post(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var res AuthResult
	if err := c.post(ctx, "/api/auth/register", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (*core.User, error) {
	var user core.User
	if err := c.get(ctx, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CompleteExternalAuth finishes an OAuth redirect flow by exchanging the
// callback code for a session token.
func (c *Client) CompleteExternalAuth(ctx context.Context, code, redirectURI string) (*AuthResult, error) {
	var res AuthResult
	req := ExternalAuthRequest{Code: code, RedirectURI: redirectURI}
	if err := c.post(ctx, "/api/auth/oauth/complete", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Products ---

// ListProducts returns the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]core.Product, error) {
	var payloads []productPayload
	if err := c.get(ctx, "/api/products", nil, &payloads); err != nil {
		return nil, err
	}
	return toProducts(payloads), nil
}

// SearchProducts returns catalog entries matching a query string.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]core.Product, error) {
	var payloads []productPayload
	if err := c.get(ctx, "/api/products", map[string]string{"q": query}, &payloads); err != nil {
		return nil, err
	}
	return toProducts(payloads), nil
}

// GetProduct returns one product by ID.
func (c *Client) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	var payload productPayload
	if err := c.get(ctx, "/api/products/"+id, nil, &payload); err != nil {
		return nil, err
	}
	p := payload.toProduct()
	return &p, nil
}

// ShopProducts returns the products of one shop.
func (c *Client) ShopProducts(ctx context.Context, shopID string) ([]core.Product, error) {
	var payloads []productPayload
	if err := c.get(ctx, "/api/products/shop/"+shopID, nil, &payloads); err != nil {
		return nil, err
	}
	return toProducts(payloads), nil
}

// CreateProduct adds a product to the caller's shop.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*core.Product, error) {
	var payload productPayload
	if err := c.post(ctx, "/api/products", in, &payload); err != nil {
		return nil, err
	}
	p := payload.toProduct()
	return &p, nil
}

// UpdateProduct replaces a product's mutable fields.
func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) (*core.Product, error) {
	var payload productPayload
	if err := c.put(ctx, "/api/products/"+id, in, &payload); err != nil {
		return nil, err
	}
	p := payload.toProduct()
	return &p, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/products/"+id)
}

// --- Orders ---

// CreateOrder places one order for a single shop.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*core.Order, error) {
	var order core.Order
	if err := c.post(ctx, "/api/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// MyOrders returns the buyer's orders.
func (c *Client) MyOrders(ctx context.Context) ([]core.Order, error) {
	var orders []core.Order
	if err := c.get(ctx, "/api/orders/my", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SellerOrders returns the orders placed against a shop.
func (c *Client) SellerOrders(ctx context.Context, shopID string) ([]core.Order, error) {
	var orders []core.Order
	if err := c.get(ctx, "/api/orders/seller/"+shopID, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus asks the backend to advance an order's status.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status core.OrderStatus) (*core.Order, error) {
	var order core.Order
	body := map[string]core.OrderStatus{"status": status}
	if err := c.patch(ctx, fmt.Sprintf("/api/orders/%s/status", orderID), body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// --- Seller dashboard ---

// SellerIncome returns the income summary for a shop.
func (c *Client) SellerIncome(ctx context.Context, shopID string) (*core.IncomeSummary, error) {
	var income core.IncomeSummary
	if err := c.get(ctx, fmt.Sprintf("/api/seller/%s/income", shopID), nil, &income); err != nil {
		return nil, err
	}
	return &income, nil
}

// SellerDashboard returns the dashboard snapshot for a shop.
func (c *Client) SellerDashboard(ctx context.Context, shopID string) (*core.DashboardStats, error) {
	var stats core.DashboardStats
	if err := c.get(ctx, fmt.Sprintf("/api/seller/%s/dashboard", shopID), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- Insights ---

// RestockStrategy asks the insights service for a restocking plan.
func (c *Client) RestockStrategy(ctx context.Context, req core.RestockRequest) (*core.RestockPlan, error) {
	var plan core.RestockPlan
	if err := c.post(ctx, "/restock/strategy", req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// AtRiskInventory asks the insights service which shelf items need
// attention (low stock, near expiry, slow moving).
func (c *Client) AtRiskInventory(ctx context.Context, req core.AtRiskRequest) (*core.AtRiskReport, error) {
	var report core.AtRiskReport
	if err := c.post(ctx, "/smart-shelf/at-risk", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ForecastDemand asks the insights service to predict upcoming demand from
// historical sales.
func (c *Client) ForecastDemand(ctx context.Context, req core.ForecastRequest) (*core.ForecastReport, error) {
	var report core.ForecastReport
	if err := c.post(ctx, "/smart-shelf/forecast", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
