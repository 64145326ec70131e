package websocket

import (
	"encoding/json"
	"sync"

	"design-sandbox-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Hub fans lifecycle notifications out to every connected sandbox session.
// The sandbox is single-instance, so there is no cross-instance relay.
type Hub struct {
	// Registered clients map: SessionID -> List of Clients (multi-tab)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a payload to ALL connected sandbox sessions.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": messageType,
		"data": data,
	})
	if err != nil {
		h.logger.Warn("Hub", "Failed to marshal broadcast", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- payload:
			default:
				// Slow consumer: drop the session rather than block the
				// hub. Handed off asynchronously; Run owns the close.
				go func(c *Client) { h.unregister <- c }(client)
			}
		}
	}
}
