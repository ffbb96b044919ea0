package ws

import (
	"log"
	"sync"
)

// Hub maps each conversation to the set of sockets currently joined to its
// room. Membership is purely in-memory and rebuilt from nothing on restart;
// a user with several tabs has one membership per connection.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) join(conversationID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Client]struct{})
	}
	h.rooms[conversationID][c] = struct{}{}
	c.rooms[conversationID] = struct{}{}
}

// removeClient drops a disconnected socket from every room it joined.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conversationID := range c.rooms {
		if members, ok := h.rooms[conversationID]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, conversationID)
			}
		}
	}
	c.rooms = make(map[uint]struct{})
}

// Broadcast delivers an event to every socket in the conversation's room,
// the originator included. Implements services.Broadcaster.
func (h *Hub) Broadcast(conversationID uint, event string, data interface{}) {
	h.broadcastExcept(conversationID, nil, event, data)
}

// broadcastExcept skips the originating connection; used for typing and
// read events where the actor's own socket must not be notified.
func (h *Hub) broadcastExcept(conversationID uint, except *Client, event string, data interface{}) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("ws: encoding %s event failed: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[conversationID] {
		if c == except {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Slow consumer; drop rather than block the room.
		}
	}
}

// roomSize is used by tests and diagnostics.
func (h *Hub) roomSize(conversationID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}
