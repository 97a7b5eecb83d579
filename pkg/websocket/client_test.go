package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/logging"
)

var upgrader = websocket.Upgrader{}

// wsServer runs handler for every incoming WebSocket connection and returns
// the ws:// URL.
func wsServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientReceivesMessages(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`))
		// Keep the connection open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	logger, _ := logging.NewZapLogger("ERROR")
	received := make(chan []byte, 1)
	client := NewClient(url, func(msg []byte) { received <- msg }, logger)
	client.Start()
	defer client.Stop()

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"hello":"world"}`, string(msg))
	case <-time.After(3 * time.Second):
		t.Fatal("expected a message from the server")
	}
	assert.True(t, client.IsConnected())
}

func TestOnConnectedRunsPerConnection(t *testing.T) {
	var conns atomic.Int32
	url := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		n := conns.Add(1)
		if n == 1 {
			// Drop the first connection to force a reconnect.
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	logger, _ := logging.NewZapLogger("ERROR")
	var connectedCalls atomic.Int32
	client := NewClient(url, nil, logger)
	client.SetReconnectPolicy(20*time.Millisecond, 0)
	client.SetOnConnected(func() { connectedCalls.Add(1) })
	client.Start()
	defer client.Stop()

	require.Eventually(t, func() bool {
		return connectedCalls.Load() >= 2
	}, 5*time.Second, 10*time.Millisecond, "callback must run again after a reconnect")
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestSendRequiresConnection(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	client := NewClient("ws://127.0.0.1:1", nil, logger)

	err := client.Send(map[string]string{"event": "join_shop"})
	assert.Error(t, err)
}

func TestSendAfterConnect(t *testing.T) {
	received := make(chan []byte, 1)
	url := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		if err == nil {
			received <- msg
		}
	})

	logger, _ := logging.NewZapLogger("ERROR")
	client := NewClient(url, nil, logger)
	client.SetOnConnected(func() {
		_ = client.Send(map[string]string{"event": "join_shop", "shop_id": "s1"})
	})
	client.Start()
	defer client.Stop()

	select {
	case msg := <-received:
		assert.Contains(t, string(msg), "join_shop")
	case <-time.After(3 * time.Second):
		t.Fatal("expected the client's message")
	}
}

func TestReconnectBudgetExhausted(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")

	// Nothing listens on this port; every dial fails.
	client := NewClient("ws://127.0.0.1:1", nil, logger)
	client.SetReconnectPolicy(10*time.Millisecond, 3)
	client.Start()

	// Give it ample time to burn the budget, then confirm it stayed down.
	time.Sleep(500 * time.Millisecond)
	assert.False(t, client.IsConnected())

	// Stop must return promptly since the loop already exited.
	done := make(chan struct{})
	go func() {
		client.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop hung after budget exhaustion")
	}
}

func TestStopClosesConnection(t *testing.T) {
	closed := make(chan struct{}, 1)
	url := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closed <- struct{}{}
				return
			}
		}
	})

	logger, _ := logging.NewZapLogger("ERROR")
	client := NewClient(url, nil, logger)
	client.Start()

	require.Eventually(t, client.IsConnected, 3*time.Second, 10*time.Millisecond)
	client.Stop()

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("server never observed the close")
	}
	assert.False(t, client.IsConnected())
}
