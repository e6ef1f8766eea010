package v1

import (
	"github.com/gin-gonic/gin"

	"go-push-notification/internal/infrastructure/logger"
	"go-push-notification/internal/interfaces/rest/v1/handler"
	"go-push-notification/internal/port/inbound"
)

func InitRESTRouter(logger logger.Logger, push inbound.PushUseCase, rg *gin.RouterGroup) {
	pushHandler := handler.NewPushHandler(push, logger)

	rg.GET("/hub/status", pushHandler.Status)

	apiGroup := rg.Group("/api/v1")
	apiGroup.GET("/connections", pushHandler.Connections)
	apiGroup.POST("/push", pushHandler.Publish)
}
