package sse

import (
	"github.com/gin-gonic/gin"
)

func InitSSERouter(sseHandler *ServerSentEventHandler, rg *gin.RouterGroup) {
	rg.GET("/sse", sseHandler.Connect)

	apiGroup := rg.Group("/api/v1/sse")
	apiGroup.GET("/connections", sseHandler.GetConnections)
}
