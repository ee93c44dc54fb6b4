package websocket

import (
	"github.com/gin-gonic/gin"
)

// InitWebSocketRouter mounts the WebSocket endpoint at path and its listing API.
func InitWebSocketRouter(wsHandler *WebSocketHandler, path string, rg *gin.RouterGroup) {
	rg.GET(path, wsHandler.Connect)

	apiGroup := rg.Group("/api/v1/ws")
	apiGroup.GET("/connections", wsHandler.GetConnections)
}
