// Package live implements the shop-scoped live update subscription: one
// WebSocket session per mounted consumer, a per-consumer event-type filter,
// and a debounced refetch trigger for the consuming view.
package live

import (
	"encoding/json"
	"sync"
	"time"

	"storefront/internal/core"
	"storefront/pkg/telemetry"
	"storefront/pkg/websocket"
)

// Reconnection policy: a fixed budget with a fixed wait, no backoff. After
// the budget is spent the session stays disconnected until remounted.
const (
	reconnectAttempts = 5
	reconnectWait     = 1000 * time.Millisecond
)

// Consumer event sets. A consumer only reacts to the types that can change
// what its view displays.
var (
	ProductEvents = []string{core.EventNewOrder, core.EventInventoryUpdate}
	OrderEvents   = []string{core.EventNewOrder, core.EventOrderUpdated}
	IncomeEvents  = []string{core.EventNewOrder, core.EventOrderUpdated}
)

// frame is the wire shape of channel traffic in both directions.
type frame struct {
	Event   string          `json:"event"`
	Type    string          `json:"type,omitempty"`
	ShopID  string          `json:"shop_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventHandler receives qualifying dashboard update events, unmodified.
type EventHandler func(core.DashboardEvent)

// Session owns at most one live connection, scoped to a shop. It joins the
// shop's channel on every (re)connect and relays qualifying events to the
// handler. Constructing with an empty shop ID or enabled=false yields an
// inert session whose Close is a no-op.
type Session struct {
	shopID  string
	events  map[string]struct{}
	handler EventHandler
	ws      *websocket.Client
	logger  core.ILogger

	// The gate: closed is set under mu before teardown touches the
	// transport, and the handler is invoked under mu, so no callback can
	// run once teardown has begun.
	mu     sync.Mutex
	closed bool
}

// NewSession opens a live subscription for shopID and starts connecting
// immediately. events is the recognized event-type set for this consumer.
func NewSession(wsURL, shopID string, enabled bool, events []string, handler EventHandler, logger core.ILogger) *Session {
	s := &Session{
		shopID:  shopID,
		events:  make(map[string]struct{}, len(events)),
		handler: handler,
		logger:  logger.WithField("component", "live_session").WithField("shop_id", shopID),
	}
	for _, e := range events {
		s.events[e] = struct{}{}
	}

	if shopID == "" || !enabled {
		return s
	}

	s.ws = websocket.NewClient(wsURL, s.handleMessage, s.logger)
	s.ws.SetReconnectPolicy(reconnectWait, reconnectAttempts)
	s.ws.SetOnConnected(s.joinChannel)
	s.ws.Start()
	return s
}

// Connected reports whether the shop's channel is currently live, for the
// "Live" indicator. Read-only: the connectivity gauge is updated on join and
// close transitions, not here.
func (s *Session) Connected() bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	return !closed && s.ws != nil && s.ws.IsConnected()
}

// Close leaves the shop channel and tears the connection down. No handler
// invocation happens after Close begins. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.ws == nil {
		return
	}

	// Best-effort departure announcement; the server also drops membership
	// when the connection closes.
	if err := s.ws.Send(frame{Event: core.ControlLeaveShop, ShopID: s.shopID}); err != nil {
		s.logger.Debug("leave_shop not delivered", "error", err)
	}
	s.ws.Stop()
	telemetry.GetGlobalMetrics().SetLiveConnected(s.shopID, false)
}

func (s *Session) joinChannel() {
	if err := s.ws.Send(frame{Event: core.ControlJoinShop, ShopID: s.shopID}); err != nil {
		s.logger.Error("join_shop failed", "error", err)
		return
	}
	telemetry.GetGlobalMetrics().SetLiveConnected(s.shopID, true)
}

func (s *Session) handleMessage(message []byte) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		s.logger.Debug("Undecodable channel message dropped", "error", err)
		return
	}
	if f.Event != "dashboard_update" {
		return
	}
	if _, recognized := s.events[f.Type]; !recognized {
		return
	}

	// Relay under the teardown gate: once Close has set closed, no further
	// handler invocation is possible.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.handler(core.DashboardEvent{Type: f.Type, Payload: f.Payload})
}
