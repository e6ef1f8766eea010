package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-push-notification/internal/infrastructure/config"
	"go-push-notification/internal/infrastructure/hub"
	"go-push-notification/internal/infrastructure/logger"
	"go-push-notification/internal/interfaces/middleware"
	v1 "go-push-notification/internal/interfaces/rest/v1"
	"go-push-notification/internal/interfaces/sse"
	"go-push-notification/internal/interfaces/web"
	"go-push-notification/internal/interfaces/websocket"
	"go-push-notification/internal/port/inbound"
)

func InitRouter(cfg *config.Config, hubInstance *hub.Hub, pushService inbound.PushUseCase, log logger.Logger) http.Handler {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(middleware.RequestLogger(log))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	rootGroup := router.Group("")

	rootGroup.GET("/metrics", gin.WrapH(promhttp.Handler()))
	v1.InitRESTRouter(log, pushService, rootGroup)
	web.InitWebRouter(rootGroup)

	limiter := middleware.NewConnectRateLimiter(cfg.Limits.ConnectRate, cfg.Limits.ConnectBurst, nil)
	sse.InitSSERouter(log, hubInstance, rootGroup, limiter.Handler())
	websocket.InitWebSocketRouter(log, hubInstance, rootGroup, limiter.Handler())

	return router
}
