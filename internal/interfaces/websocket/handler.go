package websocket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-broadcast-relay/internal/infrastructure/hub"
	"go-broadcast-relay/internal/infrastructure/logger"
	"go-broadcast-relay/internal/port/inbound"
)

// WebSocketHandler accepts WebSocket clients and relays their text frames.
type WebSocketHandler struct {
	relay    inbound.RelayUseCase
	logger   logger.Logger
	upgrader websocket.Upgrader
	opts     hub.WebSocketOptions
}

// NewWebSocketHandler creates a new WebSocket handler instance
func NewWebSocketHandler(
	relay inbound.RelayUseCase,
	allowedOrigins []string,
	opts hub.WebSocketOptions,
	logger logger.Logger,
) *WebSocketHandler {
	log := logger.WithField("handler", "websocket")
	policy := newOriginPolicy(allowedOrigins, log)

	return &WebSocketHandler{
		relay:  relay,
		logger: log,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
	}
}

// Connect upgrades the request and serves the connection until the peer leaves.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if !h.relay.IsRunning() {
		h.logger.Error("Hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Warnf("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := hub.NewWebSocketConnection("ws-"+uuid.NewString(), conn, h.opts, h.logger)
	if err := h.relay.Connect(wsConn); err != nil {
		h.logger.Warnf("Rejecting connection %s: %v", wsConn.ID(), err)
		_ = wsConn.Close()
		return
	}
	defer func() {
		h.relay.Disconnect(wsConn)
		_ = wsConn.Close()
		h.logger.Infof("Connection closed. Session: %s", wsConn.ID())
	}()
	h.logger.Infof("Connection established. Session: %s", wsConn.ID())

	// Relays must outlive a sender that hangs up mid-broadcast.
	ctx := context.WithoutCancel(c.Request.Context())
	err = wsConn.ReadLoop(func(text string) {
		if _, err := h.relay.Receive(ctx, wsConn.ID(), text); err != nil {
			h.logger.Warnf("Dropping message from %s: %v", wsConn.ID(), err)
		}
	})
	if err != nil {
		h.logger.Debugf("Read loop for %s ended: %v", wsConn.ID(), err)
	}
}

// GetConnections returns information about WebSocket connections
func (h *WebSocketHandler) GetConnections(c *gin.Context) {
	connections := h.relay.ConnectionsByType(hub.ConnectionTypeWebSocket)
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
