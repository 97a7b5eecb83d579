package api

import (
	"storefront/internal/core"

	"github.com/shopspring/decimal"
)

// LoginRequest is the credential payload for the auth endpoints.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	ShopName string `json:"shopName,omitempty"`
}

// AuthResult is the normalized outcome of any login/register/token-exchange
// call.
type AuthResult struct {
	Token string     `json:"token"`
	User  *core.User `json:"user"`
}

// ExternalAuthRequest exchanges an OAuth callback code for a session token.
type ExternalAuthRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

// ProductInput is the create/update payload for seller product management.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl,omitempty"`
}

// OrderItemInput is one line of a checkout order.
type OrderItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest places one order for a single shop.
type CreateOrderRequest struct {
	ShopID string           `json:"shopId"`
	Items  []OrderItemInput `json:"items"`
}

// productPayload tolerates the backend's historical field drift
// (imageUrl vs image, shopId vs shop_id); it is converted to core.Product
// at the decode boundary and nowhere else.
type productPayload struct {
	ID          string          `json:"id"`
	ShopID      string          `json:"shopId"`
	ShopIDAlt   string          `json:"shop_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl"`
	Image       string          `json:"image"`
}

func (p productPayload) toProduct() core.Product {
	shopID := p.ShopID
	if shopID == "" {
		shopID = p.ShopIDAlt
	}
	image := p.ImageURL
	if image == "" {
		image = p.Image
	}
	return core.Product{
		ID:          p.ID,
		ShopID:      shopID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    image,
	}
}

func toProducts(payloads []productPayload) []core.Product {
	out := make([]core.Product, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.toProduct())
	}
	return out
}
