package websocket

import (
	"github.com/gin-gonic/gin"

	"go-push-notification/internal/infrastructure/hub"
	"go-push-notification/internal/infrastructure/logger"
)

// InitWebSocketRouter mounts the WebSocket session endpoint behind guards
func InitWebSocketRouter(logger logger.Logger, hubInstance *hub.Hub, rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	wsHandler := NewWebSocketHandler(hubInstance, logger)

	handlers := append(guards, wsHandler.Connect)
	rg.GET("/pushHub", handlers...)
}
