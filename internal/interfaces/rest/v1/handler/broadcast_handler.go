package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-broadcast-relay/internal/infrastructure/logger"
	"go-broadcast-relay/internal/port/inbound"
)

type BroadcastHandler struct {
	relay  inbound.RelayUseCase
	logger logger.Logger
}

type BroadcastRequest struct {
	Text string `json:"text" binding:"required"`
}

type SendFailureResponse struct {
	ConnectionID string `json:"connection_id"`
	Error        string `json:"error"`
}

type BroadcastResponse struct {
	Status    string                `json:"status"`
	MessageID string                `json:"message_id"`
	Attempted int                   `json:"attempted"`
	Delivered int                   `json:"delivered"`
	Failures  []SendFailureResponse `json:"failures"`
}

func NewBroadcastHandler(relay inbound.RelayUseCase, logger logger.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		relay:  relay,
		logger: logger.WithField("handler", "broadcast"),
	}
}

// Broadcast pushes a server-originated message to every connection.
// Partial delivery is still a 200; failures are listed per connection.
func (h *BroadcastHandler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnf("Invalid request format: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid message format",
		})
		return
	}

	result, err := h.relay.Push(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	failures := make([]SendFailureResponse, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, SendFailureResponse{
			ConnectionID: f.ConnectionID,
			Error:        f.Err.Error(),
		})
	}

	c.JSON(http.StatusOK, BroadcastResponse{
		Status:    "broadcasted",
		MessageID: result.MessageID,
		Attempted: result.Attempted,
		Delivered: result.Delivered,
		Failures:  failures,
	})
}

// GetConnections lists every registered connection regardless of transport.
func (h *BroadcastHandler) GetConnections(c *gin.Context) {
	connections := h.relay.Connections()
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
	})
}

// Status is the health check endpoint.
func (h *BroadcastHandler) Status(c *gin.Context) {
	isRunning := h.relay.IsRunning()
	code, status := http.StatusOK, "healthy"
	if !isRunning {
		code, status = http.StatusServiceUnavailable, "stopped"
	}

	c.JSON(code, gin.H{
		"status":      status,
		"hub_running": isRunning,
		"connections": h.relay.ConnectionCount(),
	})
}
