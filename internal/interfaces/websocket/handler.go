package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-push-notification/internal/infrastructure/hub"
	"go-push-notification/internal/infrastructure/logger"
)

// WebSocketHandler upgrades clients to WebSocket push sessions
type WebSocketHandler struct {
	hub      *hub.Hub
	logger   logger.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hubInstance *hub.Hub, logger logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hubInstance,
		logger: logger.WithField("handler", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the demo client may be served from anywhere
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connect negotiates the frame protocol from ?protocol= (json by default,
// or messagepack), upgrades the request and holds it until the session ends.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	codec, err := hub.CodecByName(c.Query("protocol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if !h.hub.IsRunning() {
		h.logger.Warn("Rejecting WebSocket session, hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := hub.NewWebSocketConnection(uuid.NewString(), conn, codec, h.logger)

	ctx := c.Request.Context()
	if err := h.hub.RegisterConnection(ctx, wsConn); err != nil {
		// the hub has already sent the close frame and closed the socket
		h.logger.Errorf("Failed to register WebSocket session %s: %v", wsConn.ID(), err)
		_ = wsConn.Close()
		return
	}

	if err := h.hub.SendToConnection(ctx, wsConn.ID(), hub.ConnectedMessage(wsConn.ID())); err != nil {
		h.logger.Warnf("Failed to greet WebSocket session %s: %v", wsConn.ID(), err)
	}

	<-wsConn.Context().Done()
	h.logger.Debugf("WebSocket session %s finished", wsConn.ID())
}
