package mock

import (
	"sync"

	"storefront/internal/core"
)

// wsFrame is the wire shape the backend pushes and the clients send.
type wsFrame struct {
	Event   string      `json:"event"`
	Type    string      `json:"type,omitempty"`
	ShopID  string      `json:"shop_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// hubClient is one connected WebSocket peer.
type hubClient struct {
	id   string
	send chan wsFrame

	mu     sync.Mutex
	closed bool
}

func newHubClient(id string) *hubClient {
	return &hubClient{
		id:   id,
		send: make(chan wsFrame, 64), // buffered so a slow client never blocks broadcast
	}
}

// push queues a frame without blocking; false means the client is too slow.
func (c *hubClient) push(f wsFrame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *hubClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// hub tracks shop-room membership and broadcasts dashboard updates into
// rooms. Clients join and leave rooms via control frames.
type hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*hubClient]bool
	logger core.ILogger
}

func newHub(logger core.ILogger) *hub {
	return &hub{
		rooms:  make(map[string]map[*hubClient]bool),
		logger: logger,
	}
}

func (h *hub) join(shopID string, c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[shopID]
	if !ok {
		room = make(map[*hubClient]bool)
		h.rooms[shopID] = room
	}
	room[c] = true
	h.logger.Debug("Client joined shop room", "client_id", c.id, "shop_id", shopID, "room_size", len(room))
}

func (h *hub) leave(shopID string, c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[shopID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, shopID)
		}
	}
}

// drop removes the client from every room and closes it.
func (h *hub) drop(c *hubClient) {
	h.mu.Lock()
	for shopID, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, shopID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// broadcast sends a frame to every member of the shop's room. Slow clients
// are dropped rather than blocked on.
func (h *hub) broadcast(shopID string, f wsFrame) {
	h.mu.RLock()
	members := make([]*hubClient, 0, len(h.rooms[shopID]))
	for c := range h.rooms[shopID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.push(f) {
			h.logger.Warn("Dropping slow live client", "client_id", c.id, "shop_id", shopID)
			h.drop(c)
		}
	}
}

// roomSize returns the membership count of a shop room.
func (h *hub) roomSize(shopID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[shopID])
}
