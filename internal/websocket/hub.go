package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a change notification for one collection. Tasks carries the
// full collection snapshot when the message is sent to a remote client.
type Message struct {
	Type       string         `json:"type"`
	Entity     string         `json:"entity"`
	Action     string         `json:"action"`
	ID         string         `json:"id,omitempty"`
	Collection string         `json:"collection"`
	Extra      map[string]any `json:"extra,omitempty"`
	Tasks      any            `json:"tasks,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(collection, entity, action, id string) Message {
	return Message{
		Type:       fmt.Sprintf("%s_%s", entity, action),
		Entity:     entity,
		Action:     action,
		ID:         id,
		Collection: collection,
	}
}

// Hub maintains the set of active clients per collection and fans out
// messages to the clients watching the message's collection.
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

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client watching msg.Collection.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.collection != msg.Collection {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full; the next notification triggers a full re-read.
			h.logger.Debug("dropped notification", "collection", msg.Collection, "type", msg.Type)
		}
	}
}

// Listen registers an in-process listener for a collection. The returned
// channel receives raw notifications until stop is called.
func (h *Hub) Listen(collection string) (notifications <-chan []byte, stop func()) {
	c := newClient(h, nil, collection)
	h.Register(c)
	var once sync.Once
	return c.send, func() { once.Do(func() { h.Unregister(c) }) }
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
