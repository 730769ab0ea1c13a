package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"insider/internal/domain"
)

// Hub tracks the live connection of every participant and delivers events
// to them. It implements app.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // participantID -> client
	logger  zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Notify sends an event to one participant if they are connected
func (h *Hub) Notify(participantID string, event *domain.GameEvent) {
	h.mu.RLock()
	c, ok := h.clients[participantID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(event.Type)).Msg("marshal event")
		return
	}
	c.enqueue(data)
}

// Register binds a client to a participant id
func (h *Hub) Register(participantID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[participantID] = c
}

// Unregister removes the binding if c is still the participant's current
// client, and reports whether it was.
func (h *Hub) Unregister(participantID string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[participantID] != c {
		return false
	}
	delete(h.clients, participantID)
	return true
}

// Rebind moves c from one participant id to another. Any client previously
// bound to the new id is returned so the caller can close it.
func (h *Hub) Rebind(fromID, toID string, c *Client) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[fromID] == c {
		delete(h.clients, fromID)
	}

	replaced := h.clients[toID]
	h.clients[toID] = c
	if replaced == c {
		return nil
	}
	return replaced
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every connection
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}
