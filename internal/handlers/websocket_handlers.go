package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-relay/internal/hub"
	"chat-relay/internal/presence"
	"chat-relay/internal/router"
)

type WebSocketHandlers struct {
	hub      *hub.Hub
	registry *presence.Registry
	handlers map[string]router.HandlerFunc
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWebSocketHandlers(h *hub.Hub, registry *presence.Registry, rt *router.Router, logger zerolog.Logger) *WebSocketHandlers {
	return &WebSocketHandlers{
		hub:      h,
		registry: registry,
		handlers: rt.Handlers(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // Configure for production
		},
		logger: logger,
	}
}

// HandleWebSocket upgrades the connection and starts the session pumps. The
// userId query parameter is optional: clients may connect without
// identifying, in which case they are reachable only through group channels.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Upgrade error")
		return
	}

	client := hub.NewClient(h.hub, conn, userID, h.registry, h.handlers, h.logger)

	go client.WritePump()
	go client.ReadPump()
}

// HandleHealth reports liveness and the current connection count.
func (h *WebSocketHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": h.hub.Count(),
	})
}
