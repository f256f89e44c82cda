package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Time allowed to answer one chat message
	chatTimeout = 45 * time.Second
)

// Client represents a WebSocket client connection
type Client struct {
	UserID   string
	UserRole string // "operator" or "admin"
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewClient creates a new WebSocket client
func NewClient(userID string, userRole string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID:   userID,
		UserRole: userRole,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, 256),
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket error", zap.Error(err))
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.logger.Debug("Invalid message format", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "ping":
			c.write(Envelope{Type: TypePong, Timestamp: time.Now().Format(time.RFC3339)})

		case "chat":
			c.handleChat(msg.Data)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// write queues v for this client; messages are dropped when the buffer is full.
func (c *Client) write(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.hub.logger.Error("❌ Failed to marshal message", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("⚠️ Client buffer full, dropping message", zap.String("user", c.UserID))
	}
}

// handleChat answers a {"type":"chat","data":{"message":"..."}} frame.
func (c *Client) handleChat(data map[string]interface{}) {
	text, _ := data["message"].(string)
	if c.hub.chat == nil || text == "" {
		c.write(Envelope{Type: TypeError, Data: map[string]string{"error": "message is required"}})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	reply, err := c.hub.chat.Chat(ctx, c.UserID, text)
	if err != nil {
		c.hub.logger.Error("❌ Chat over websocket failed", zap.String("user", c.UserID), zap.Error(err))
		c.write(Envelope{Type: TypeError, Data: map[string]string{"error": "failed to process message"}})
		return
	}
	c.write(Envelope{Type: TypeChatReply, Timestamp: reply.Timestamp.Format(time.RFC3339), Data: reply})
}
