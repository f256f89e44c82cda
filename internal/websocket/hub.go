package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"aiswo-backend/internal/alerts"
	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/models"

	"go.uber.org/zap"
)

// Outgoing message types.
const (
	TypeBinAlert  = "bin_alert"
	TypeChatReply = "chat_reply"
	TypePong      = "pong"
	TypeError     = "error"
)

// ChatHandler answers chat messages sent over the socket.
type ChatHandler interface {
	Chat(ctx context.Context, userID, message string) (chatbot.Reply, error)
}

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients (userID -> Client)
	clients map[string]*Client

	// Messages addressed to a single user
	broadcast chan *Message

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	chat   ChatHandler
	logger *zap.Logger

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Message represents a message to broadcast to a specific user
type Message struct {
	UserID string
	Data   interface{}
}

// Envelope is the JSON shape of every message written to clients.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// NewHub creates a new Hub instance. chat may be nil, which disables chat messages.
func NewHub(chat ChatHandler, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		chat:       chat,
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.conn.Close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			// A second connection for the same user replaces the first
			if old, ok := h.clients[client.UserID]; ok && old != client {
				old.conn.Close()
			}
			h.clients[client.UserID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("✅ [WEBSOCKET] Client CONNECTED",
				zap.String("user", client.UserID),
				zap.String("role", client.UserRole),
				zap.Int("clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.UserID]; ok && current == client {
				delete(h.clients, client.UserID)
				close(client.send)
				h.logger.Info("🔴 [WEBSOCKET] Client DISCONNECTED",
					zap.String("user", client.UserID),
					zap.String("role", client.UserRole),
					zap.Int("clients", len(h.clients)))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				h.logger.Error("❌ Failed to marshal message", zap.Error(err))
				continue
			}
			h.mu.RLock()
			if client, ok := h.clients[message.UserID]; ok {
				select {
				case client.send <- data:
				default:
					h.logger.Warn("⚠️ Client buffer full, dropping message", zap.String("user", message.UserID))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastToUser sends a message to a specific user
func (h *Hub) BroadcastToUser(userID string, data interface{}) {
	h.broadcast <- &Message{
		UserID: userID,
		Data:   data,
	}
}

// BroadcastToRole sends a message to all users with a specific role
func (h *Hub) BroadcastToRole(role string, data interface{}) int {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("❌ Failed to marshal broadcast message", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.UserRole == role {
			select {
			case client.send <- dataBytes:
				sent++
			default:
			}
		}
	}
	return sent
}

// Name implements alerts.Notifier.
func (h *Hub) Name() string {
	return "websocket"
}

// Notify implements alerts.Notifier: admins and the assigned operator get a bin_alert.
func (h *Hub) Notify(ctx context.Context, alert alerts.Alert) error {
	msg := Envelope{
		Type:      TypeBinAlert,
		Timestamp: alert.RaisedAt.UTC().Format(time.RFC3339),
		Data:      alert,
	}
	h.BroadcastToRole(models.RoleAdmin, msg)
	if alert.OperatorID != "" {
		h.BroadcastToUser(alert.OperatorID, msg)
	}
	return nil
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}
