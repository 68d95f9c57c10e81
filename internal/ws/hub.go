package ws

import "sync"

// Hub tracks open connections per conversation and fans events out to
// them. It holds no business state; the core publishes to kafka and the
// consumer feeds the hub.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*Connection]bool // conversationID -> connections
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*Connection]bool)}
}

func (h *Hub) Register(conversationID string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conversationID] == nil {
		h.conns[conversationID] = make(map[*Connection]bool)
	}
	h.conns[conversationID][c] = true
}

func (h *Hub) Unregister(conversationID string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[conversationID]; ok {
		if set[c] {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.conns, conversationID)
		}
	}
}

// Broadcast delivers raw event bytes to every connection on the
// conversation, dropping slow consumers.
func (h *Hub) Broadcast(conversationID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[conversationID] {
		select {
		case c.send <- payload:
		default:
		}
	}
}
