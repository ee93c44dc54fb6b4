package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"go-broadcast-relay/internal/infrastructure/config"
	"go-broadcast-relay/internal/infrastructure/logger"
	"go-broadcast-relay/internal/infrastructure/metrics"
	"go-broadcast-relay/internal/interfaces/rest/v1/handler"
	"go-broadcast-relay/internal/interfaces/sse"
	"go-broadcast-relay/internal/interfaces/websocket"
	"go-broadcast-relay/internal/port/inbound"
)

func InitRouter(
	cfg *config.Config,
	relay inbound.RelayUseCase,
	reg *prometheus.Registry,
	log logger.Logger,
) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	rootGroup := router.Group("")
	rootGroup.GET("/metrics", gin.WrapH(metrics.Handler(reg)))

	broadcastHandler := handler.NewBroadcastHandler(relay, log)
	rootGroup.GET("/hub/status", broadcastHandler.Status)
	apiGroup := rootGroup.Group("/api/v1")
	{
		apiGroup.POST("/broadcast", broadcastHandler.Broadcast)
		apiGroup.GET("/connections", broadcastHandler.GetConnections)
	}

	sse.InitSSERouter(sse.NewServerSentEventHandler(relay, cfg.SSEKeepAliveInterval, log), rootGroup)
	websocket.InitWebSocketRouter(
		websocket.NewWebSocketHandler(relay, cfg.AllowedOrigins(), cfg.WebSocket(), log),
		cfg.WSPath,
		rootGroup,
	)

	return router
}

// requestLogger logs one line per request through the application logger.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	log = log.WithField("component", "http")
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(logger.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
			"client": c.ClientIP(),
		}).Debug("request handled")
	}
}
