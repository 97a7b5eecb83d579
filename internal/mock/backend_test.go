package mock

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/logging"
)

func TestWebhookSinkRecordsDeliveries(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	backend := NewBackend(logger)
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/webhooks/orders/created", "application/json",
		bytes.NewReader([]byte(`{"orderId":"o1","shopId":"s1"}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	hooks := backend.Webhooks()
	require.Len(t, hooks, 1)
	assert.Equal(t, "/api/webhooks/orders/created", hooks[0].Path)
	assert.Equal(t, "o1", hooks[0].Body["orderId"])
}

func TestHubRoomMembership(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	h := newHub(logger)

	a := newHubClient("a")
	b := newHubClient("b")
	h.join("shop-1", a)
	h.join("shop-1", b)
	h.join("shop-2", a)

	assert.Equal(t, 2, h.roomSize("shop-1"))
	assert.Equal(t, 1, h.roomSize("shop-2"))

	h.leave("shop-1", a)
	assert.Equal(t, 1, h.roomSize("shop-1"))

	h.drop(b)
	assert.Equal(t, 0, h.roomSize("shop-1"))
	assert.Equal(t, 1, h.roomSize("shop-2"))
}

func TestHubBroadcastReachesRoomOnly(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	h := newHub(logger)

	member := newHubClient("member")
	outsider := newHubClient("outsider")
	h.join("shop-1", member)
	h.join("shop-2", outsider)

	h.broadcast("shop-1", wsFrame{Event: "dashboard_update", Type: "new_order"})

	select {
	case f := <-member.send:
		assert.Equal(t, "new_order", f.Type)
	default:
		t.Fatal("room member should have received the frame")
	}
	select {
	case <-outsider.send:
		t.Fatal("other rooms must not receive the frame")
	default:
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	h := newHub(logger)

	slow := newHubClient("slow")
	h.join("shop-1", slow)

	// Fill the send buffer past capacity without draining.
	for i := 0; i < cap(slow.send)+1; i++ {
		h.broadcast("shop-1", wsFrame{Event: "dashboard_update", Type: "new_order"})
	}

	assert.Equal(t, 0, h.roomSize("shop-1"))
}
