package handlers

import (
	"net/http"
	"time"

	"roadeye/config"
	"roadeye/database"
	"roadeye/models"
	"roadeye/rabbitmq"
	"roadeye/storage"
	"roadeye/validation"
	ws "roadeye/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Handlers carries the service dependencies shared by all endpoints
type Handlers struct {
	db        *database.Database
	auth      *database.AuthService
	cfg       *config.Config
	validator *validation.Validator
	storage   storage.ObjectStorage
	publisher *rabbitmq.Publisher
	hub       *ws.Hub
}

// NewHandlers creates the handler set
func NewHandlers(db *database.Database, auth *database.AuthService, cfg *config.Config,
	validator *validation.Validator, store storage.ObjectStorage,
	publisher *rabbitmq.Publisher, hub *ws.Hub) *Handlers {
	return &Handlers{
		db:        db,
		auth:      auth,
		cfg:       cfg,
		validator: validator,
		storage:   store,
		publisher: publisher,
		hub:       hub,
	}
}

// HealthCheck returns the service health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	connectedClients := 0
	if h.hub != nil {
		connectedClients = h.hub.ConnectedClients()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:           "healthy",
		Service:          "roadeye",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ConnectedClients: connectedClients,
	})
}

// publishEvent forwards a lifecycle event to RabbitMQ and the websocket
// hub. Both paths are best-effort.
func (h *Handlers) publishEvent(event models.ReportEvent) {
	if h.publisher != nil {
		if err := h.publisher.Publish(event); err != nil {
			log.Errorf("Failed to publish %s event for report %s: %v", event.Event, event.ReportID, err)
		}
	}
	if h.hub != nil {
		h.hub.BroadcastEvent(event)
	}
}
