package live

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/core"
	"storefront/internal/mock"
	"storefront/pkg/logging"
	"storefront/pkg/telemetry"
)

func newLiveBackend(t *testing.T) (*mock.Backend, string) {
	t.Helper()
	logger, _ := logging.NewZapLogger("ERROR")
	backend := mock.NewBackend(logger)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return backend, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func collectEvents() (chan core.DashboardEvent, EventHandler) {
	events := make(chan core.DashboardEvent, 16)
	return events, func(ev core.DashboardEvent) { events <- ev }
}

func waitForRoom(t *testing.T, backend *mock.Backend, shopID string, size int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return backend.RoomSize(shopID) == size
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSessionJoinsShopChannel(t *testing.T) {
	backend, wsURL := newLiveBackend(t)
	logger, _ := logging.NewZapLogger("ERROR")
	_, handler := collectEvents()

	s := NewSession(wsURL, "shop-1", true, ProductEvents, handler, logger)
	defer s.Close()

	waitForRoom(t, backend, "shop-1", 1)
	assert.True(t, s.Connected())
}

func TestSessionRelaysRecognizedEvents(t *testing.T) {
	backend, wsURL := newLiveBackend(t)
	logger, _ := logging.NewZapLogger("ERROR")
	events, handler := collectEvents()

	s := NewSession(wsURL, "shop-1", true, ProductEvents, handler, logger)
	defer s.Close()
	waitForRoom(t, backend, "shop-1", 1)

	backend.PushEvent("shop-1", core.EventNewOrder, map[string]string{"id": "o1"})

	select {
	case ev := <-events:
		assert.Equal(t, core.EventNewOrder, ev.Type)
		assert.Contains(t, string(ev.Payload), "o1")
	case <-time.After(3 * time.Second):
		t.Fatal("expected a relayed event")
	}
}

func TestSessionFiltersUnrecognizedTypes(t *testing.T) {
	backend, wsURL := newLiveBackend(t)
	logger, _ := logging.NewZapLogger("ERROR")
	events, handler := collectEvents()

	// Product consumers do not react to order_updated.
	s := NewSession(wsURL, "shop-1", true, ProductEvents, handler, logger)
	defer s.Close()
	waitForRoom(t, backend, "shop-1", 1)

	backend.PushEvent("shop-1", core.EventOrderUpdated, nil)
	backend.PushEvent("shop-1", "price_update", nil)
	backend.PushEvent("shop-1", core.EventInventoryUpdate, nil)

	// Only the inventory update qualifies.
	select {
	case ev := <-events:
		assert.Equal(t, core.EventInventoryUpdate, ev.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("expected the inventory event")
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event %q", ev.Type)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSessionScopedToOwnShop(t *testing.T) {
	backend, wsURL := newLiveBackend(t)
	logger, _ := logging.NewZapLogger("ERROR")
	events, handler := collectEvents()

	s := NewSession(wsURL, "shop-1", true, OrderEvents, handler, logger)
	defer s.Close()
	waitForRoom(t, backend, "shop-1", 1)

	backend.PushEvent("shop-2", core.EventNewOrder, nil)

	select {
	case <-events:
		t.Fatal("event for another shop must not reach this session")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCloseStopsCallbacksAndLeavesRoom(t *testing.T) {
	backend, wsURL := newLiveBackend(t)
	logger, _ := logging.NewZapLogger("ERROR")
	events, handler := collectEvents()

	s := NewSession(wsURL, "shop-1", true, OrderEvents, handler, logger)
	waitForRoom(t, backend, "shop-1", 1)

	s.Close()
	assert.False(t, s.Connected())
	waitForRoom(t, backend, "shop-1", 0)

	backend.PushEvent("shop-1", core.EventNewOrder, nil)
	select {
	case <-events:
		t.Fatal("no handler invocation may happen after Close")
	case <-time.After(200 * time.Millisecond):
	}

	// Close is idempotent.
	s.Close()
}

func TestConnectivityGaugeFollowsTransitions(t *testing.T) {
	backend, wsURL := newLiveBackend(t)
	logger, _ := logging.NewZapLogger("ERROR")
	_, handler := collectEvents()
	gauge := telemetry.GetGlobalMetrics()

	s := NewSession(wsURL, "shop-gauge", true, OrderEvents, handler, logger)
	waitForRoom(t, backend, "shop-gauge", 1)
	require.Eventually(t, func() bool {
		return gauge.LiveConnected("shop-gauge")
	}, 3*time.Second, 10*time.Millisecond)

	// Connected is a pure read: polling it through a second, disabled
	// session for the same shop must not disturb the gauge.
	disabled := NewSession(wsURL, "shop-gauge", false, OrderEvents, handler, logger)
	assert.False(t, disabled.Connected())
	assert.True(t, gauge.LiveConnected("shop-gauge"))
	disabled.Close()

	s.Close()
	assert.False(t, gauge.LiveConnected("shop-gauge"))
}

func TestInertSessionWithoutShop(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	_, handler := collectEvents()

	s := NewSession("ws://localhost:1/ws", "", true, OrderEvents, handler, logger)
	assert.False(t, s.Connected())
	s.Close()

	disabled := NewSession("ws://localhost:1/ws", "shop-1", false, OrderEvents, handler, logger)
	assert.False(t, disabled.Connected())
	disabled.Close()
}
