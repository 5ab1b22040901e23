package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Message represents a real-time sync notification broadcast to all clients.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Presence identifies one household member currently connected.
type Presence struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// Hub maintains the set of active WebSocket clients, broadcasts messages, and
// tracks who is currently connected. Every join and leave pushes the full
// roster to everyone; clients replace their presence state wholesale instead
// of applying deltas.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub and announces the new roster.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.broadcastPresence()
}

// Unregister removes a client from the hub, closes its send channel, and
// announces the shrunken roster.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.broadcastPresence()
	}
}

// Presence returns the connected members, one entry per user no matter how
// many tabs they have open, ordered by name.
func (h *Hub) Presence() []Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.presenceLocked()
}

func (h *Hub) presenceLocked() []Presence {
	seen := make(map[int64]Presence)
	for c := range h.clients {
		seen[c.user.UserID] = c.user
	}
	roster := make([]Presence, 0, len(seen))
	for _, p := range seen {
		roster = append(roster, p)
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].Name < roster[j].Name })
	return roster
}

func (h *Hub) broadcastPresence() {
	h.mu.RLock()
	roster := h.presenceLocked()
	h.mu.RUnlock()
	h.Broadcast(NewMessage("presence", "sync", 0, map[string]any{"users": roster}))
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
