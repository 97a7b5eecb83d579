package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "storefront/pkg/errors"
	phttp "storefront/pkg/http"
)

// Error is a normalized API failure: status code (0 when the envelope
// carried success=false on a 200) plus the human-readable message the
// backend supplied.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
	}
	return "api: " + e.Message
}

// Unwrap maps well-known failures onto sentinel errors so call sites can
// use errors.Is.
func (e *Error) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case strings.Contains(strings.ToLower(e.Message), "insufficient stock"):
		return apperrors.ErrInsufficientStock
	case strings.Contains(strings.ToLower(e.Message), "not a seller"):
		return apperrors.ErrNotSeller
	}
	return nil
}

// envelope is the wrapper shape the backend uses for most responses. Some
// endpoints return the payload bare; decodeEnvelope accepts both so call
// sites never have to.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// decodeEnvelope is the single normalization boundary for response bodies:
// {success:true, data:T} yields T, {success:false, ...} yields an *Error
// with the message taken from "error" then "message", and anything else is
// treated as a bare T.
func decodeEnvelope(body []byte, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Success != nil {
		if !*env.Success {
			msg := env.Error
			if msg == "" {
				msg = env.Message
			}
			if msg == "" {
				msg = "request failed"
			}
			return &Error{Message: msg}
		}
		if out == nil || len(env.Data) == 0 {
			return nil
		}
		return json.Unmarshal(env.Data, out)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// normalizeError converts transport-level failures into *Error values,
// extracting the backend's message from the error body when present.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *phttp.APIError
	if errors.As(err, &apiErr) {
		msg := extractMessage(apiErr.Body)
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &Error{StatusCode: apiErr.StatusCode, Message: msg}
	}
	return fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
}

func extractMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Error != "" {
		return env.Error
	}
	return env.Message
}
