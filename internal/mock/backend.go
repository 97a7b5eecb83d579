// Package mock is an in-process stand-in for the storefront backend: the
// envelope-wrapped REST surface plus the shop-scoped live channel. It exists
// for package tests and local development; the real backend is out of scope.
package mock

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/core"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// WebhookDelivery records one webhook the backend received, for assertions.
type WebhookDelivery struct {
	Path string
	Body map[string]interface{}
}

type account struct {
	user     core.User
	password string
}

// Backend is the fake storefront service. Zero-value maps are initialized
// by NewBackend; state is guarded by one mutex since tests are small.
type Backend struct {
	logger   core.ILogger
	hub      *hub
	upgrader websocket.Upgrader
	limiter  *rate.Limiter

	mu        sync.Mutex
	accounts  map[string]*account // by email
	tokens    map[string]string   // token -> email
	oauth     map[string]string   // code -> email
	products  map[string]core.Product
	orders    map[string]core.Order
	webhooks  []WebhookDelivery
	idCounter int
}

// NewBackend creates an empty backend.
func NewBackend(logger core.ILogger) *Backend {
	log := logger.WithField("component", "mock_backend")
	return &Backend{
		logger:   log,
		hub:      newHub(log),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		limiter:  rate.NewLimiter(rate.Limit(50), 100),
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		oauth:    make(map[string]string),
		products: make(map[string]core.Product),
		orders:   make(map[string]core.Order),
	}
}

// --- Seeding helpers ---

// SeedUser registers an account and returns the user.
func (b *Backend) SeedUser(email, password, name, role, shopID string) core.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	user := core.User{ID: b.nextIDLocked("user"), Email: email, Name: name, Role: role, ShopID: shopID}
	b.accounts[email] = &account{user: user, password: password}
	return user
}

// SeedOAuthCode maps an OAuth callback code to an existing account.
func (b *Backend) SeedOAuthCode(code, email string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.oauth[code] = email
}

// SeedProduct inserts a product, generating an ID when empty.
func (b *Backend) SeedProduct(p core.Product) core.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = b.nextIDLocked("prod")
	}
	b.products[p.ID] = p
	return p
}

// Webhooks returns the recorded webhook deliveries.
func (b *Backend) Webhooks() []WebhookDelivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]WebhookDelivery, len(b.webhooks))
	copy(out, b.webhooks)
	return out
}

// RoomSize reports how many live clients are joined to a shop.
func (b *Backend) RoomSize(shopID string) int {
	return b.hub.roomSize(shopID)
}

// PushEvent broadcasts a dashboard update into a shop room.
func (b *Backend) PushEvent(shopID, eventType string, payload interface{}) {
	b.hub.broadcast(shopID, wsFrame{Event: "dashboard_update", Type: eventType, ShopID: shopID, Payload: payload})
}

func (b *Backend) nextIDLocked(prefix string) string {
	b.idCounter++
	return fmt.Sprintf("%s-%d", prefix, b.idCounter)
}

// --- HTTP surface ---

// Handler returns the backend's HTTP handler.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", b.handleLogin)
	mux.HandleFunc("POST /api/auth/register", b.handleRegister)
	mux.HandleFunc("GET /api/auth/me", b.handleMe)
	mux.HandleFunc("POST /api/auth/oauth/complete", b.handleOAuthComplete)

	mux.HandleFunc("GET /api/products", b.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", b.handleGetProduct)
	mux.HandleFunc("GET /api/products/shop/{shopId}", b.handleShopProducts)
	mux.HandleFunc("POST /api/products", b.handleCreateProduct)
	mux.HandleFunc("PUT /api/products/{id}", b.handleUpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", b.handleDeleteProduct)

	mux.HandleFunc("POST /api/orders", b.handleCreateOrder)
	mux.HandleFunc("GET /api/orders/my", b.handleMyOrders)
	mux.HandleFunc("GET /api/orders/seller/{shopId}", b.handleSellerOrders)
	mux.HandleFunc("PATCH /api/orders/{id}/status", b.handleOrderStatus)

	mux.HandleFunc("GET /api/seller/{shopId}/income", b.handleIncome)
	mux.HandleFunc("GET /api/seller/{shopId}/dashboard", b.handleDashboard)

	mux.HandleFunc("POST /restock/strategy", b.handleRestock)
	mux.HandleFunc("POST /smart-shelf/at-risk", b.handleAtRisk)
	mux.HandleFunc("POST /smart-shelf/forecast", b.handleForecast)

	mux.HandleFunc("POST /api/webhooks/", b.handleWebhook)

	mux.HandleFunc("GET /ws", b.handleWS)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func respond(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func respondErr(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}

func (b *Backend) authed(r *http.Request) (*core.User, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.tokens[token]
	if !ok {
		return nil, false
	}
	acct := b.accounts[email]
	if acct == nil {
		return nil, false
	}
	u := acct.user
	return &u, true
}

func (b *Backend) issueToken(email string) string {
	token := uuid.NewString()
	b.mu.Lock()
	b.tokens[token] = email
	b.mu.Unlock()
	return token
}

// --- Auth handlers ---

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "malformed request")
		return
	}
	b.mu.Lock()
	acct := b.accounts[req.Email]
	b.mu.Unlock()
	if acct == nil || acct.password != req.Password {
		respondErr(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	respond(w, map[string]interface{}{"token": b.issueToken(req.Email), "user": acct.user})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		ShopName string `json:"shopName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondErr(w, http.StatusBadRequest, "malformed request")
		return
	}
	b.mu.Lock()
	if _, exists := b.accounts[req.Email]; exists {
		b.mu.Unlock()
		respondErr(w, http.StatusConflict, "email already registered")
		return
	}
	role := req.Role
	if role == "" {
		role = core.RoleBuyer
	}
	user := core.User{ID: b.nextIDLocked("user"), Email: req.Email, Name: req.Name, Role: role}
	if role == core.RoleSeller {
		user.ShopID = b.nextIDLocked("shop")
	}
	b.accounts[req.Email] = &account{user: user, password: req.Password}
	b.mu.Unlock()
	respond(w, map[string]interface{}{"token": b.issueToken(req.Email), "user": user})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authed(r)
	if !ok {
		respondErr(w, http.StatusUnauthorized, "invalid token")
		return
	}
	respond(w, user)
}

func (b *Backend) handleOAuthComplete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		RedirectURI string `json:"redirectUri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "malformed request")
		return
	}
	b.mu.Lock()
	email, ok := b.oauth[req.Code]
	acct := b.accounts[email]
	b.mu.Unlock()
	if !ok || acct == nil {
		respondErr(w, http.StatusUnauthorized, "invalid authorization code")
		return
	}
	respond(w, map[string]interface{}{"token": b.issueToken(email), "user": acct.user})
}

// --- Product handlers ---

func (b *Backend) listProducts(filter func(core.Product) bool) []core.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Product, 0, len(b.products))
	for _, p := range b.products {
		if filter == nil || filter(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	respond(w, b.listProducts(func(p core.Product) bool {
		return q == "" || strings.Contains(strings.ToLower(p.Name), q)
	}))
}

func (b *Backend) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	p, ok := b.products[r.PathValue("id")]
	b.mu.Unlock()
	if !ok {
		respondErr(w, http.StatusNotFound, "product not found")
		return
	}
	respond(w, p)
}

func (b *Backend) handleShopProducts(w http.ResponseWriter, r *http.Request) {
	shopID := r.PathValue("shopId")
	respond(w, b.listProducts(func(p core.Product) bool { return p.ShopID == shopID }))
}

func (b *Backend) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authed(r)
	if !ok || !user.IsSeller() {
		respondErr(w, http.StatusUnauthorized, "seller account required")
		return
	}
	var p core.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" {
		respondErr(w, http.StatusBadRequest, "malformed product")
		return
	}
	b.mu.Lock()
	p.ID = b.nextIDLocked("prod")
	p.ShopID = user.ShopID
	b.products[p.ID] = p
	b.mu.Unlock()
	respond(w, p)
}

func (b *Backend) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authed(r)
	if !ok || !user.IsSeller() {
		respondErr(w, http.StatusUnauthorized, "seller account required")
		return
	}
	id := r.PathValue("id")
	var in core.Product
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondErr(w, http.StatusBadRequest, "malformed product")
		return
	}
	b.mu.Lock()
	p, exists := b.products[id]
	if !exists || p.ShopID != user.ShopID {
		b.mu.Unlock()
		respondErr(w, http.StatusNotFound, "product not found")
		return
	}
	stockChanged := p.Stock != in.Stock
	p.Name, p.Description, p.Category = in.Name, in.Description, in.Category
	p.Price, p.Stock, p.ImageURL = in.Price, in.Stock, in.ImageURL
	b.products[id] = p
	b.mu.Unlock()

	if stockChanged {
		b.PushEvent(p.ShopID, core.EventInventoryUpdate, map[string]interface{}{
			"productId": p.ID, "stock": p.Stock,
		})
	}
	respond(w, p)
}

func (b *Backend) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authed(r)
	if !ok || !user.IsSeller() {
		respondErr(w, http.StatusUnauthorized, "seller account required")
		return
	}
	id := r.PathValue("id")
	b.mu.Lock()
	p, exists := b.products[id]
	if exists && p.ShopID == user.ShopID {
		delete(b.products, id)
	}
	b.mu.Unlock()
	if !exists {
		respondErr(w, http.StatusNotFound, "product not found")
		return
	}
	respond(w, nil)
}

// --- Order handlers ---

func (b *Backend) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authed(r)
	if !ok {
		respondErr(w, http.StatusUnauthorized, "login required")
		return
	}
	var req struct {
		ShopID string `json:"shopId"`
		Items  []struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		respondErr(w, http.StatusBadRequest, "malformed order")
		return
	}

	b.mu.Lock()
	order := core.Order{
		ID:        b.nextIDLocked("order"),
		ShopID:    req.ShopID,
		BuyerID:   user.ID,
		Status:    core.StatusToPay,
		Total:     decimal.Zero,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	for _, item := range req.Items {
		p, exists := b.products[item.ProductID]
		if !exists {
			b.mu.Unlock()
			respondErr(w, http.StatusBadRequest, "product not found")
			return
		}
		if item.Quantity > p.Stock {
			b.mu.Unlock()
			respondErr(w, http.StatusBadRequest, "Insufficient stock for "+p.Name)
			return
		}
		p.Stock -= item.Quantity
		b.products[p.ID] = p
		order.Items = append(order.Items, core.OrderItem{
			ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: item.Quantity,
		})
		order.Total = order.Total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	b.orders[order.ID] = order
	b.mu.Unlock()

	b.PushEvent(order.ShopID, core.EventNewOrder, order)
	respond(w, order)
}

func (b *Backend) listOrders(filter func(core.Order) bool) []core.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Order, 0, len(b.orders))
	for _, o := range b.orders {
		if filter(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authed(r)
	if !ok {
		respondErr(w, http.StatusUnauthorized, "login required")
		return
	}
	respond(w, b.listOrders(func(o core.Order) bool { return o.BuyerID == user.ID }))
}

func (b *Backend) handleSellerOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authed(r); !ok {
		respondErr(w, http.StatusUnauthorized, "login required")
		return
	}
	shopID := r.PathValue("shopId")
	respond(w, b.listOrders(func(o core.Order) bool { return o.ShopID == shopID }))
}

func (b *Backend) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authed(r); !ok {
		respondErr(w, http.StatusUnauthorized, "login required")
		return
	}
	var req struct {
		Status core.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "malformed request")
		return
	}
	id := r.PathValue("id")
	b.mu.Lock()
	order, exists := b.orders[id]
	if !exists {
		b.mu.Unlock()
		respondErr(w, http.StatusNotFound, "order not found")
		return
	}
	if !order.Status.CanTransitionTo(req.Status) {
		b.mu.Unlock()
		respondErr(w, http.StatusBadRequest, fmt.Sprintf("cannot transition %s to %s", order.Status, req.Status))
		return
	}
	order.Status = req.Status
	order.UpdatedAt = time.Now()
	b.orders[id] = order
	b.mu.Unlock()

	b.PushEvent(order.ShopID, core.EventOrderUpdated, core.OrderStatusChange{
		OrderID: order.ID, ShopID: order.ShopID, Status: order.Status,
	})
	respond(w, order)
}

// --- Seller dashboard handlers ---

func (b *Backend) handleIncome(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authed(r); !ok {
		respondErr(w, http.StatusUnauthorized, "login required")
		return
	}
	shopID := r.PathValue("shopId")
	b.mu.Lock()
	defer b.mu.Unlock()
	income := core.IncomeSummary{ShopID: shopID, TotalIncome: decimal.Zero, PendingTotal: decimal.Zero}
	for _, o := range b.orders {
		if o.ShopID != shopID {
			continue
		}
		income.OrderCount++
		switch o.Status {
		case core.StatusCompleted:
			income.TotalIncome = income.TotalIncome.Add(o.Total)
		case core.StatusCancelled, core.StatusReturnRefund:
		default:
			income.PendingTotal = income.PendingTotal.Add(o.Total)
		}
	}
	respond(w, income)
}

func (b *Backend) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authed(r); !ok {
		respondErr(w, http.StatusUnauthorized, "login required")
		return
	}
	shopID := r.PathValue("shopId")
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := core.DashboardStats{ShopID: shopID, TotalIncome: decimal.Zero}
	for _, p := range b.products {
		if p.ShopID != shopID {
			continue
		}
		stats.ProductCount++
		if p.Stock <= 5 {
			stats.LowStockCount++
		}
	}
	for _, o := range b.orders {
		if o.ShopID != shopID {
			continue
		}
		stats.OrderCount++
		if o.Status == core.StatusToPay || o.Status == core.StatusToShip {
			stats.PendingOrders++
		}
		if o.Status == core.StatusCompleted {
			stats.TotalIncome = stats.TotalIncome.Add(o.Total)
		}
	}
	respond(w, stats)
}

// --- Insights handler ---

func (b *Backend) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req core.RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Products) == 0 {
		respondErr(w, http.StatusBadRequest, "malformed request")
		return
	}
	goal := req.Goal
	if goal == "" {
		goal = core.GoalBalanced
	}
	days := req.RestockDays
	if days <= 0 {
		days = 14
	}

	// Greedy fill by goal score, respecting the budget.
	products := make([]core.RestockProduct, len(req.Products))
	copy(products, req.Products)
	score := func(p core.RestockProduct) float64 {
		switch goal {
		case core.GoalProfit:
			return p.ProfitMargin * p.AvgDailySales
		case core.GoalVolume:
			return p.AvgDailySales
		default:
			return (p.ProfitMargin + 1) * p.AvgDailySales / 2
		}
	}
	sort.SliceStable(products, func(i, j int) bool { return score(products[i]) > score(products[j]) })

	plan := core.RestockPlan{Strategy: goal, ShopID: req.ShopID, Budget: req.Budget, TotalCost: decimal.Zero}
	remaining := req.Budget
	for _, p := range products {
		needed := int(math.Ceil(p.AvgDailySales*float64(days))) - p.Stock
		if needed <= 0 || p.Cost.LessThanOrEqual(decimal.Zero) {
			continue
		}
		affordable := int(remaining.Div(p.Cost).IntPart())
		qty := needed
		if affordable < qty {
			qty = affordable
		}
		if qty < p.MinOrderQty {
			continue
		}
		if qty <= 0 {
			continue
		}
		cost := p.Cost.Mul(decimal.NewFromInt(int64(qty)))
		plan.Items = append(plan.Items, core.RestockItem{
			ProductID: p.ProductID, Name: p.Name, Quantity: qty,
			UnitCost: p.Cost, TotalCost: cost,
			Reason: fmt.Sprintf("covers %d days of demand", days),
		})
		plan.TotalCost = plan.TotalCost.Add(cost)
		remaining = remaining.Sub(cost)
	}
	plan.Reasoning = fmt.Sprintf("%s strategy over %d days", goal, days)
	respond(w, plan)
}

// --- Webhook sink ---

func (b *Backend) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	b.webhooks = append(b.webhooks, WebhookDelivery{Path: r.URL.Path, Body: body})
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// --- Live channel ---

func (b *Backend) handleWS(w http.ResponseWriter, r *http.Request) {
	if !b.limiter.Allow() {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newHubClient(uuid.NewString())

	// Write pump
	go func() {
		for f := range client.send {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}()

	// Read loop: only control frames are expected from clients.
	defer func() {
		b.hub.drop(client)
		conn.Close()
	}()
	for {
		var f wsFrame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		switch f.Event {
		case core.ControlJoinShop:
			if f.ShopID != "" {
				b.hub.join(f.ShopID, client)
			}
		case core.ControlLeaveShop:
			if f.ShopID != "" {
				b.hub.leave(f.ShopID, client)
			}
		}
	}
}
