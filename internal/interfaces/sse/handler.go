package sse

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-broadcast-relay/internal/infrastructure/hub"
	"go-broadcast-relay/internal/infrastructure/logger"
	"go-broadcast-relay/internal/port/inbound"
)

type ServerSentEventHandler struct {
	relay     inbound.RelayUseCase
	keepAlive time.Duration
	logger    logger.Logger
}

func NewServerSentEventHandler(relay inbound.RelayUseCase, keepAlive time.Duration, logger logger.Logger) *ServerSentEventHandler {
	return &ServerSentEventHandler{
		relay:     relay,
		keepAlive: keepAlive,
		logger:    logger.WithField("handler", "sse"),
	}
}

// Connect streams every broadcast to the client until it goes away.
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
	if !h.relay.IsRunning() {
		h.logger.Error("Hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	conn := hub.NewSSEConnection(c.Request.Context(), "sse-"+uuid.NewString(), c.Writer, h.keepAlive, h.logger)
	c.Status(http.StatusOK)

	// Greet before registering so the client sees this event first.
	if err := conn.Send(c.Request.Context(), hub.ConnectedMessage(conn.ID())); err != nil {
		h.logger.Warnf("Failed to greet SSE client %s: %v", conn.ID(), err)
		return
	}

	if err := h.relay.Connect(conn); err != nil {
		h.logger.Warnf("Rejecting SSE connection %s: %v", conn.ID(), err)
		_ = conn.Close()
		return
	}
	defer func() {
		h.relay.Disconnect(conn)
		_ = conn.Close()
	}()
	h.logger.Infof("SSE connection %s established", conn.ID())

	<-conn.Context().Done()
	h.logger.Infof("SSE connection %s closed", conn.ID())
}

// GetConnections returns information about SSE connections
func (h *ServerSentEventHandler) GetConnections(c *gin.Context) {
	connections := h.relay.ConnectionsByType(hub.ConnectionTypeSSE)
	connectionInfo := make([]gin.H, len(connections))

	for i, conn := range connections {
		connectionInfo[i] = gin.H{
			"id":   conn.ID(),
			"type": conn.Type(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections": len(connections),
		"connections":       connectionInfo,
		"hub_running":       h.relay.IsRunning(),
	})
}
