package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-push-notification/internal/infrastructure/logger"
	"go-push-notification/internal/port/inbound"
)

type PushHandler struct {
	push   inbound.PushUseCase
	logger logger.Logger
}

type PushMessageRequest struct {
	Message string `json:"message" binding:"required,max=1024"`
}

type PushMessageResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Recipients int    `json:"recipients"`
}

type ConnectionsResponse struct {
	TotalConnections int                      `json:"total_connections"`
	Connections      []inbound.ConnectionInfo `json:"connections"`
}

func NewPushHandler(push inbound.PushUseCase, logger logger.Logger) *PushHandler {
	return &PushHandler{
		push:   push,
		logger: logger.WithField("handler", "push"),
	}
}

// Publish sends an ad-hoc message to the broadcast group with the same
// stamping and escaping as the periodic publisher.
func (h *PushHandler) Publish(c *gin.Context) {
	var req PushMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnf("Invalid push request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid message format",
		})
		return
	}

	message, err := h.push.PublishNow(c.Request.Context(), req.Message)
	if errors.Is(err, inbound.ErrEmptyMessage) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Message must not be blank",
		})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to publish message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to send message",
		})
		return
	}

	c.JSON(http.StatusOK, PushMessageResponse{
		Status:     "sent",
		Message:    message,
		Recipients: h.push.Status().GroupMembers,
	})
}

// Connections lists live sessions, optionally filtered with ?type=sse|websocket.
func (h *PushHandler) Connections(c *gin.Context) {
	conns := h.push.Connections(c.Query("type"))
	c.JSON(http.StatusOK, ConnectionsResponse{
		TotalConnections: len(conns),
		Connections:      conns,
	})
}

// Status reports hub and publisher health. It answers 503 while either is
// down so load balancers can act on it.
func (h *PushHandler) Status(c *gin.Context) {
	status := h.push.Status()
	code := http.StatusOK
	if !status.HubRunning || !status.PublisherRunning {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
