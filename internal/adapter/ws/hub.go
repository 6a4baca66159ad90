package ws

import (
	"log/slog"
	"sync"
)

// Hub manages all WebSocket connections and room/connection-scoped delivery.
// Membership is keyed by connection id rather than player id, since one
// player may hold several live connections (multi-tab, §5).
type Hub struct {
	clients map[string]*Client // connID -> client

	rooms map[string]map[string]*Client // roomCode -> connID -> client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *RoomMessage

	logger *slog.Logger

	mu sync.RWMutex
}

// RoomMessage is a message destined for every connection in a room.
type RoomMessage struct {
	RoomCode string
	Message  *Message
	Exclude  string // connID to skip, if any
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *RoomMessage, 256),
		logger:     logger,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ConnID] = client
			h.mu.Unlock()
			h.logger.Debug("client registered", "conn_id", client.ConnID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ConnID]; ok {
				h.leaveRoomLocked(client)
				delete(h.clients, client.ConnID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "conn_id", client.ConnID)

		case roomMsg := <-h.broadcast:
			h.broadcastToRoom(roomMsg)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom attaches a connection to a room's broadcast set.
func (h *Hub) JoinRoom(client *Client, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.RoomCode != "" {
		h.leaveRoomLocked(client)
	}

	if _, ok := h.rooms[roomCode]; !ok {
		h.rooms[roomCode] = make(map[string]*Client)
	}
	h.rooms[roomCode][client.ConnID] = client
	client.RoomCode = roomCode
}

func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(client)
}

func (h *Hub) leaveRoomLocked(client *Client) {
	if client.RoomCode == "" {
		return
	}
	if room, ok := h.rooms[client.RoomCode]; ok {
		delete(room, client.ConnID)
		if len(room) == 0 {
			delete(h.rooms, client.RoomCode)
		}
	}
	client.RoomCode = ""
}

// BroadcastToRoom sends msg to every connection attached to roomCode.
func (h *Hub) BroadcastToRoom(roomCode string, msg *Message, excludeConnID string) {
	h.broadcast <- &RoomMessage{RoomCode: roomCode, Message: msg, Exclude: excludeConnID}
}

func (h *Hub) broadcastToRoom(roomMsg *RoomMessage) {
	h.mu.RLock()
	room, ok := h.rooms[roomMsg.RoomCode]
	clients := make([]*Client, 0, len(room))
	for connID, client := range room {
		if connID == roomMsg.Exclude {
			continue
		}
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if !ok {
		return
	}

	data := roomMsg.Message.Bytes()
	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client send buffer full, closing", "conn_id", client.ConnID)
			go h.Unregister(client)
		}
	}
}

// SendToConn delivers msg to exactly one connection, if it is still live.
func (h *Hub) SendToConn(connID string, msg *Message) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case client.send <- msg.Bytes():
	default:
		h.logger.Warn("client send buffer full", "conn_id", connID)
	}
}

// SendToConns delivers msg to several connections, skipping dead ones.
func (h *Hub) SendToConns(connIDs []string, msg *Message) {
	data := msg.Bytes()
	h.mu.RLock()
	clients := make([]*Client, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := h.clients[id]; ok {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client send buffer full", "conn_id", client.ConnID)
		}
	}
}

func (h *Hub) RoomSize(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}
