package sse

import (
	"github.com/gin-gonic/gin"

	"go-push-notification/internal/infrastructure/hub"
	"go-push-notification/internal/infrastructure/logger"
)

// InitSSERouter mounts the event-stream session endpoint. guards run before
// the handler, typically the connect rate limiter.
func InitSSERouter(logger logger.Logger, hubInstance *hub.Hub, rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	sseHandler := NewServerSentEventHandler(hubInstance, logger)

	handlers := append(guards, sseHandler.Connect)
	rg.GET("/pushHub/sse", handlers...)
}
