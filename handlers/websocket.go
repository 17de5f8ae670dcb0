package handlers

import (
	"net/http"

	ws "roadeye/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

// WebSocket upgrader
var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now
		return true
	},
}

// LiveFeed upgrades the connection and streams report lifecycle events
func (h *Handlers) LiveFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("Failed to upgrade connection to WebSocket: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
