// Package hub provides the channel abstraction for the relay: named
// multicast groups of live sessions, and the session type itself.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"chat-relay/internal/models"
)

func userChannel(userID string) string   { return "user:" + userID }
func groupChannel(groupID string) string { return "group:" + groupID }

// Hub tracks every live client and the named channels each belongs to.
// Unregister removes a client from all of its channels, so membership never
// outlives the connection.
type Hub struct {
	mu       sync.Mutex
	clients  map[*Client]bool
	channels map[string]map[*Client]bool
	members  map[*Client]map[string]bool
	logger   zerolog.Logger
}

func New(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		channels: make(map[string]map[*Client]bool),
		members:  make(map[*Client]map[string]bool),
		logger:   logger.With().Str("component", "Hub").Logger(),
	}
}

// Register adds a client to the hub. The client is not in any channel yet.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

// Unregister removes a client from the hub and from every channel it
// joined, and closes its send buffer. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)

	for channel := range h.members[c] {
		delete(h.channels[channel], c)
		if len(h.channels[channel]) == 0 {
			delete(h.channels, channel)
		}
	}
	delete(h.members, c)
	close(c.send)
}

func (h *Hub) join(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][c] = true
	if h.members[c] == nil {
		h.members[c] = make(map[string]bool)
	}
	h.members[c][channel] = true
}

// EmitToUser multicasts an event to every session in a user's channel.
func (h *Hub) EmitToUser(userID, event string, data json.RawMessage) {
	h.emit(userChannel(userID), event, data)
}

// EmitToGroup multicasts an event to every session in a group's channel.
func (h *Hub) EmitToGroup(groupID, event string, data json.RawMessage) {
	h.emit(groupChannel(groupID), event, data)
}

// emit delivers to every member of the channel. An absent channel is a
// no-op. Clients whose send buffer is full are dropped rather than allowed
// to stall delivery for everyone else.
func (h *Hub) emit(channel, event string, data json.RawMessage) {
	payload, err := json.Marshal(models.Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Error marshaling outbound event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.channels[channel] {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn().Str("session", c.sessionID).Msg("Send buffer full, dropping client")
			h.removeLocked(c)
		}
	}
}

// Count returns the number of live clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close unregisters every client. Their write pumps send close frames as
// the send buffers close.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.removeLocked(c)
	}
}
