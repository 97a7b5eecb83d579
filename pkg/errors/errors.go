package apperrors

import "errors"

// Standardized storefront client errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotSeller keeps the backend's user-facing phrasing so consoles can
	// show it verbatim.
	ErrNotSeller         = errors.New("This account is not a seller account")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrNetwork           = errors.New("network error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrItemNotFound      = errors.New("cart item not found")
)
