package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/core"
	"storefront/pkg/logging"
)

type sink struct {
	mu       sync.Mutex
	requests []struct {
		Path   string
		APIKey string
		Body   map[string]interface{}
	}
	status int
}

func (s *sink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.requests = append(s.requests, struct {
		Path   string
		APIKey string
		Body   map[string]interface{}
	}{r.URL.Path, r.Header.Get("X-API-Key"), body})
	s.mu.Unlock()
	if s.status != 0 {
		w.WriteHeader(s.status)
	}
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func TestNotifierDeliversOrderCreated(t *testing.T) {
	s := &sink{}
	srv := httptest.NewServer(s)
	defer srv.Close()

	logger, _ := logging.NewZapLogger("ERROR")
	n := NewNotifier(srv.URL, config.Secret("hook-key"), logger)

	n.OrderCreated(core.Order{ID: "o1", ShopID: "shop-1"})
	n.Close()

	require.Equal(t, 1, s.count())
	req := s.requests[0]
	assert.Equal(t, "/api/webhooks/orders/created", req.Path)
	assert.Equal(t, "hook-key", req.APIKey)
	assert.Equal(t, "o1", req.Body["orderId"])
	assert.Equal(t, "shop-1", req.Body["shopId"])
}

func TestNotifierEventPaths(t *testing.T) {
	s := &sink{}
	srv := httptest.NewServer(s)
	defer srv.Close()

	logger, _ := logging.NewZapLogger("ERROR")
	n := NewNotifier(srv.URL, "", logger)

	n.ProductCreated(core.Product{ID: "p1", ShopID: "s1"})
	n.ProductUpdated(core.Product{ID: "p1", ShopID: "s1"})
	n.ProductDeleted("p1", "s1")
	n.OrderUpdated(core.Order{ID: "o1", ShopID: "s1"})
	n.OrderStatusChanged("o1", "s1", core.StatusToShip)
	n.InventoryUpdated("p1", "s1", 7)
	n.Close()

	require.Equal(t, 6, s.count())
	paths := make(map[string]bool)
	for _, req := range s.requests {
		paths[req.Path] = true
	}
	assert.True(t, paths["/api/webhooks/products/created"])
	assert.True(t, paths["/api/webhooks/products/deleted"])
	assert.True(t, paths["/api/webhooks/orders/updated"])
	assert.True(t, paths["/api/webhooks/orders/status-changed"])
	assert.True(t, paths["/api/webhooks/inventory/updated"])
}

func TestNotifierDisabledWithoutBaseURL(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	n := NewNotifier("", "key", logger)

	// Must be a silent no-op.
	n.OrderCreated(core.Order{ID: "o1"})
	n.Close()
}

func TestNotifierSwallowsRejections(t *testing.T) {
	s := &sink{status: http.StatusInternalServerError}
	srv := httptest.NewServer(s)
	defer srv.Close()

	logger, _ := logging.NewZapLogger("ERROR")
	n := NewNotifier(srv.URL, "", logger)

	// A failing endpoint never surfaces to the caller.
	n.OrderCreated(core.Order{ID: "o1", ShopID: "s1"})
	n.Close()
	assert.Equal(t, 1, s.count())
}

func TestNotifierUnreachableEndpoint(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	n := NewNotifier("http://127.0.0.1:1", "", logger)

	done := make(chan struct{})
	go func() {
		n.OrderCreated(core.Order{ID: "o1"})
		n.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("fire-and-forget delivery must never block the caller")
	}
}
