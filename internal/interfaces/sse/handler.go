package sse

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-push-notification/internal/infrastructure/hub"
	"go-push-notification/internal/infrastructure/logger"
)

type ServerSentEventHandler struct {
	hub    *hub.Hub
	logger logger.Logger
}

func NewServerSentEventHandler(hubInstance *hub.Hub, logger logger.Logger) *ServerSentEventHandler {
	return &ServerSentEventHandler{
		hub:    hubInstance,
		logger: logger.WithField("handler", "sse"),
	}
}

// Connect opens a push session over Server-Sent Events and streams until
// the client goes away or the hub closes the session.
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Warn("Rejecting SSE session, hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	ctx := c.Request.Context()
	conn := hub.NewSSEConnection(ctx, uuid.NewString(), c.Writer, h.logger)

	if err := h.hub.RegisterConnection(ctx, conn); err != nil {
		h.logger.Errorf("Failed to register SSE session %s: %v", conn.ID(), err)
		_ = conn.Close()

		status := http.StatusInternalServerError
		if errors.Is(err, hub.ErrHubNotRunning) {
			status = http.StatusServiceUnavailable
		}
		// the session already claimed the event-stream content type
		c.Writer.Header().Del("Content-Type")
		c.JSON(status, gin.H{
			"error": "Failed to register connection",
		})
		return
	}

	if err := h.hub.SendToConnection(ctx, conn.ID(), hub.ConnectedMessage(conn.ID())); err != nil {
		h.logger.Warnf("Failed to greet SSE session %s: %v", conn.ID(), err)
	}

	<-conn.Context().Done()

	_ = conn.Close()
	conn.WaitWrites()
	h.logger.Debugf("SSE session %s finished", conn.ID())
}
