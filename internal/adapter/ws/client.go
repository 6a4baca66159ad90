package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hiddenrole/mafia/internal/domain/service"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
)

// Client represents a single WebSocket connection. ConnID is the stable
// transport identity (§5); PlayerID is filled in once join_room succeeds and
// may change if the same connection somehow rejoins under a different id.
type Client struct {
	hub *Hub

	conn *websocket.Conn

	send chan []byte

	ConnID   string
	PlayerID string
	RoomCode string

	logger *slog.Logger

	onMessage    func(*Client, *Message)
	onDisconnect func(*Client)
}

func NewClient(hub *Hub, conn *websocket.Conn, connID string, logger *slog.Logger, onMessage func(*Client, *Message), onDisconnect func(*Client)) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, 256),
		ConnID:       connID,
		logger:       logger,
		onMessage:    onMessage,
		onDisconnect: onDisconnect,
	}
}

// ReadPump pumps messages from the websocket connection to the router.
func (c *Client) ReadPump() {
	defer func() {
		if c.onDisconnect != nil {
			c.onDisconnect(c)
		}
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "error", err, "conn_id", c.ConnID)
			}
			break
		}

		msg, err := ParseMessage(data)
		if err != nil {
			c.logger.Warn("failed to parse message", "error", err, "conn_id", c.ConnID)
			c.SendError("invalid_message", "failed to parse message")
			continue
		}

		c.logger.Debug("received message", "type", msg.Type, "conn_id", c.ConnID)

		if c.onMessage != nil {
			c.onMessage(c, msg)
		}
	}
}

// WritePump pumps messages from the router to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// Send sends a message to this client.
func (c *Client) Send(msg *Message) {
	select {
	case c.send <- msg.Bytes():
	default:
		c.logger.Warn("client send buffer full", "conn_id", c.ConnID)
	}
}

// SendError sends an error message to this client.
func (c *Client) SendError(code, message string) {
	c.Send(MustMessage(service.EventError, ErrorPayload{Code: code, Message: message}))
}
