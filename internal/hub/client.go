package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-relay/internal/models"
	"chat-relay/internal/presence"
	"chat-relay/internal/router"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// Client is one live connection session. It is the sole owner of its
// websocket connection and runs a read pump (dispatching inbound events
// through the router's handler table) and a write pump.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	userID    string
	registry  *presence.Registry
	handlers  map[string]router.HandlerFunc
	logger    zerolog.Logger
}

// NewClient registers a session with the hub. A non-empty userID joins the
// session into that user's channel and marks the user online; an anonymous
// session can still join groups and send events.
func NewClient(h *Hub, conn *websocket.Conn, userID string, registry *presence.Registry, handlers map[string]router.HandlerFunc, logger zerolog.Logger) *Client {
	c := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		sessionID: uuid.NewString(),
		userID:    userID,
		registry:  registry,
		handlers:  handlers,
	}
	c.logger = logger.With().Str("session", c.sessionID).Str("user", userID).Logger()

	h.Register(c)
	if userID != "" {
		h.join(c, userChannel(userID))
		count := registry.MarkOnline(userID)
		c.logger.Info().Int("connections", count).Msg("User connected")
	} else {
		c.logger.Info().Msg("Anonymous connection established")
	}
	return c
}

// JoinGroup adds the session to a group's channel. An empty group id is a
// no-op. No membership or authorization check happens here; that belongs
// upstream.
func (c *Client) JoinGroup(groupID string) {
	if groupID == "" {
		return
	}
	c.hub.join(c, groupChannel(groupID))
	c.logger.Debug().Str("group", groupID).Msg("Joined group channel")
}

// ReadPump reads inbound frames and dispatches them until the connection
// drops. On exit it removes the session from every channel and decrements
// presence.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		if c.userID != "" {
			count := c.registry.MarkOffline(c.userID)
			c.logger.Info().Int("connections", count).Msg("User disconnected")
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket error")
			}
			break
		}

		var envelope models.Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			c.logger.Debug().Err(err).Msg("Dropping unparseable frame")
			continue
		}
		handler, ok := c.handlers[envelope.Event]
		if !ok {
			c.logger.Debug().Str("event", envelope.Event).Msg("Dropping unknown event")
			continue
		}
		handler(context.Background(), c, envelope.Data)
	}
}

// WritePump writes outbound frames and keepalive pings until the send
// buffer closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Error().Err(err).Msg("Write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
