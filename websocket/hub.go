// Package websocket pushes report lifecycle events to connected live-map
// and dashboard clients.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"roadeye/models"

	"github.com/apex/log"
)

// BroadcastMessage is the wire envelope sent to clients
type BroadcastMessage struct {
	Type      string             `json:"type"`
	Data      models.ReportEvent `json:"data"`
	Timestamp time.Time          `json:"timestamp"`
}

// Hub manages WebSocket connections and broadcasting
type Hub struct {
	clients map[*Client]bool

	broadcast chan []byte

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	mutex sync.RWMutex

	connectedClients int
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			log.Infof("Client connected. Total clients: %d", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			log.Infof("Client disconnected. Total clients: %d", h.connectedClients)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
		}
	}
}

// BroadcastEvent broadcasts a report lifecycle event to all connected clients
func (h *Hub) BroadcastEvent(event models.ReportEvent) {
	message := BroadcastMessage{
		Type:      "report_event",
		Data:      event,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal broadcast message: %v", err)
		return
	}

	h.broadcast <- data
}

// ConnectedClients returns the number of currently connected clients
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients
}
