package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to WebSocket connections and registers
// each one with the hub under a fresh connection id (§5: the connection id
// is purely transport-level and distinct from the player id negotiated in
// join_room).
type Handler struct {
	hub          *Hub
	logger       *slog.Logger
	onMessage    func(*Client, *Message)
	onDisconnect func(*Client)
}

func NewHandler(hub *Hub, logger *slog.Logger, onMessage func(*Client, *Message), onDisconnect func(*Client)) *Handler {
	return &Handler{
		hub:          hub,
		logger:       logger,
		onMessage:    onMessage,
		onDisconnect: onDisconnect,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.New().String()

	client := NewClient(h.hub, conn, connID, h.logger, h.onMessage, h.onDisconnect)
	h.hub.Register(client)

	client.Send(MustMessage(EventConnected, ConnectedPayload{ConnectionID: connID}))

	go client.WritePump()
	go client.ReadPump()
}
