package hub

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gorilla/websocket"

	"go-push-notification/internal/infrastructure/logger"
)

const (
	ConnectionTypeSSE       = "sse"
	ConnectionTypeWebSocket = "websocket"

	keepAliveInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
)

// SSEConnection implements the Connection interface for Server-Sent Events
type SSEConnection struct {
	id     string
	writer http.ResponseWriter

	ctx    context.Context
	cancel context.CancelFunc

	closed   bool
	closedMu sync.RWMutex

	// serializes writes from group sends and the keep-alive loop
	writeMu sync.Mutex

	logger logger.Logger
}

// NewSSEConnection wraps an HTTP response as a push session. The session
// ends when ctx (normally the request context) is done or Close is called.
func NewSSEConnection(
	ctx context.Context,
	id string,
	w http.ResponseWriter,
	logger logger.Logger,
) *SSEConnection {
	rctx, cancel := context.WithCancel(ctx)

	conn := &SSEConnection{
		id:     id,
		writer: w,
		ctx:    rctx,
		cancel: cancel,
		logger: logger.WithField("connection_id", id),
	}

	conn.setupSSEHeaders()

	go conn.keepAlive()

	return conn
}

func (c *SSEConnection) ID() string { return c.id }

func (c *SSEConnection) Type() string { return ConnectionTypeSSE }

// Send writes message as one SSE event. Invocations use their target as the
// event name so browsers can addEventListener("NewPushMessage", ...).
func (c *SSEConnection) Send(ctx context.Context, message *Message) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	event := sse.Event{
		Id:    message.ID,
		Event: message.Type,
		Data:  message,
	}
	if message.Target != "" {
		event.Event = message.Target
	}

	done := make(chan error, 1)
	go func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()

		if c.IsClosed() {
			done <- ErrConnectionClosed
			return
		}
		if err := sse.Encode(c.writer, event); err != nil {
			done <- err
			return
		}
		if flusher, ok := c.writer.(http.Flusher); ok {
			flusher.Flush()
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			c.logger.Errorf("Failed to write message: %v", err)
			c.Close()
			return err
		}
		return nil

	case <-ctx.Done():
		c.logger.Warn("Send operation cancelled")
		return ctx.Err()

	case <-time.After(writeTimeout):
		c.logger.Warn("Send operation timed out")
		c.Close()
		return fmt.Errorf("send timeout")
	}
}

// Close marks the session closed and cancels its context. Writers holding
// writeMu finish first, so the handler can return safely afterwards.
func (c *SSEConnection) Close() error {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return nil
	}
	c.closed = true
	c.closedMu.Unlock()

	c.cancel()

	c.logger.Info("SSE connection closed")
	return nil
}

func (c *SSEConnection) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

func (c *SSEConnection) Context() context.Context {
	return c.ctx
}

// WaitWrites blocks until any write in progress has finished. The HTTP
// handler calls it before returning so no write outlives the response.
func (c *SSEConnection) WaitWrites() {
	c.writeMu.Lock()
	c.writeMu.Unlock()
}

func (c *SSEConnection) setupSSEHeaders() {
	c.writer.Header().Set("Content-Type", "text/event-stream")
	c.writer.Header().Set("Cache-Control", "no-cache")
	c.writer.Header().Set("Connection", "keep-alive")
	c.writer.Header().Set("X-Accel-Buffering", "no") // For nginx
}

func (c *SSEConnection) keepAlive() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Send(c.ctx, KeepAliveMessage()); err != nil {
				c.logger.Errorf("Failed to send keep-alive: %v", err)
				c.Close()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WebSocketConnection implements the Connection interface for WebSocket connections
type WebSocketConnection struct {
	id    string
	conn  *websocket.Conn
	codec Codec

	ctx    context.Context
	cancel context.CancelFunc

	closed   bool
	closedMu sync.RWMutex

	logger logger.Logger

	send chan *Message

	pongTimeout  time.Duration
	pingInterval time.Duration
}

// NewWebSocketConnection starts the read and write pumps for conn. Frames
// are encoded with codec.
func NewWebSocketConnection(
	id string,
	conn *websocket.Conn,
	codec Codec,
	logger logger.Logger,
) *WebSocketConnection {
	ctx, cancel := context.WithCancel(context.Background())

	wsConn := &WebSocketConnection{
		id:           id,
		conn:         conn,
		codec:        codec,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger.WithFields(map[string]any{"connection_id": id, "protocol": codec.Name()}),
		send:         make(chan *Message, 256),
		pongTimeout:  60 * time.Second,
		pingInterval: 54 * time.Second,
	}

	wsConn.setupWebSocket()

	go wsConn.writePump()
	go wsConn.readPump()

	return wsConn
}

func (c *WebSocketConnection) ID() string { return c.id }

func (c *WebSocketConnection) Type() string { return ConnectionTypeWebSocket }

// Send queues message for the write pump
func (c *WebSocketConnection) Send(ctx context.Context, message *Message) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	select {
	case c.send <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close sends a close frame and tears down the socket. The send channel is
// left open; pending Sends observe the cancelled context instead.
func (c *WebSocketConnection) Close() error {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return nil
	}
	c.closed = true
	c.closedMu.Unlock()

	c.cancel()

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout),
	)
	err := c.conn.Close()

	c.logger.Info("WebSocket connection closed")
	return err
}

func (c *WebSocketConnection) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

func (c *WebSocketConnection) Context() context.Context {
	return c.ctx
}

func (c *WebSocketConnection) setupWebSocket() {
	c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	})
}

func (c *WebSocketConnection) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			data, err := c.codec.Encode(message)
			if err != nil {
				c.logger.Errorf("Failed to encode message %s: %v", message.ID, err)
				continue
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.logger.Errorf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Errorf("Failed to send ping: %v", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// readPump drains client frames so control messages are processed. The
// push protocol is server-to-client only; client payloads are ignored.
func (c *WebSocketConnection) readPump() {
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				c.logger.Errorf("WebSocket error: %v", err)
			}
			return
		}

		c.logger.Debugf("Ignoring client frame (type %d, %d bytes)", messageType, len(data))
	}
}
