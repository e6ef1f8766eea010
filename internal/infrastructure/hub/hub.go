package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-push-notification/internal/infrastructure/logger"
	"go-push-notification/internal/infrastructure/metrics"
	"go-push-notification/internal/port/outbound"
)

var (
	ErrHubNotRunning      = errors.New("hub is not running")
	ErrHubStopped         = errors.New("hub stopped")
	ErrConnectionExists   = errors.New("connection already registered")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionClosed   = errors.New("connection closed")
)

const (
	defaultSendTimeout     = 10 * time.Second
	defaultCleanupInterval = 30 * time.Second
)

// Hub owns live push sessions and the named groups they are addressed by.
type Hub struct {
	connections   map[string]Connection
	connecting    map[string]*pendingConnect
	connectionsMu sync.RWMutex

	groups *groups

	lifecycle   []LifecycleHandler
	lifecycleMu sync.RWMutex

	running   bool
	runningMu sync.RWMutex

	logger    logger.Logger
	validator *MessageValidator

	sendTimeout     time.Duration
	cleanupInterval time.Duration

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
	loop   sync.WaitGroup
	sends  sync.WaitGroup
}

var _ outbound.GroupTransport = (*Hub)(nil)

// pendingConnect marks a session whose OnConnect hooks are still running.
// An unregister in that window records its reason here and leaves the
// OnDisconnect hooks to RegisterConnection, so they always run after the
// OnConnect hooks.
type pendingConnect struct {
	aborted bool
	reason  error
}

type Option func(*Hub)

// WithSendTimeout bounds each per-connection delivery of a group send.
func WithSendTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.sendTimeout = d
		}
	}
}

// WithCleanupInterval sets how often closed sessions are swept.
func WithCleanupInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.cleanupInterval = d
		}
	}
}

func New(logger logger.Logger, opts ...Option) *Hub {
	h := &Hub{
		connections:     make(map[string]Connection),
		connecting:      make(map[string]*pendingConnect),
		groups:          newGroups(),
		logger:          logger.WithField("component", "hub"),
		validator:       NewMessageValidator(),
		sendTimeout:     defaultSendTimeout,
		cleanupInterval: defaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterLifecycle adds a handler for session open/close events. Handlers
// must be registered before sessions are accepted.
func (h *Hub) RegisterLifecycle(handler LifecycleHandler) {
	h.lifecycleMu.Lock()
	h.lifecycle = append(h.lifecycle, handler)
	h.lifecycleMu.Unlock()
}

func (h *Hub) handlers() []LifecycleHandler {
	h.lifecycleMu.RLock()
	defer h.lifecycleMu.RUnlock()
	return append([]LifecycleHandler(nil), h.lifecycle...)
}

// Start starts the hub and its closed-session sweeper
func (h *Hub) Start(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return fmt.Errorf("hub is already running")
	}

	h.ctx, h.cancel = context.WithCancel(ctx)
	h.running = true

	h.loop.Add(1)
	go h.run(h.ctx)

	h.logger.Info("Hub started successfully")
	return nil
}

// Stop ends every session, firing OnDisconnect for each, and waits for
// in-flight deliveries until ctx expires.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	if !h.running {
		h.runningMu.Unlock()
		return nil
	}
	h.running = false
	h.cancel()
	h.runningMu.Unlock()

	h.loop.Wait()

	for _, conn := range h.GetConnections() {
		_ = h.UnregisterConnection(ctx, conn.ID(), ErrHubStopped)
	}

	done := make(chan struct{})
	go func() {
		h.sends.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Hub stopped successfully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight sends: %w", ctx.Err())
	}
}

// IsRunning returns true if the hub is currently running
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// RegisterConnection stores conn and runs every OnConnect hook before
// returning, so the session is a group member by the time its handler
// starts streaming. A hook error unregisters the session and is returned.
// A session unregistered while its hooks run is reported as
// ErrConnectionClosed, after its OnDisconnect hooks have run.
func (h *Hub) RegisterConnection(ctx context.Context, conn Connection) error {
	h.runningMu.RLock()
	running, hubCtx := h.running, h.ctx
	h.runningMu.RUnlock()

	if !running {
		return ErrHubNotRunning
	}

	id := conn.ID()
	pending := &pendingConnect{}

	h.connectionsMu.Lock()
	_, exists := h.connections[id]
	_, busy := h.connecting[id]
	if exists || busy {
		h.connectionsMu.Unlock()
		return fmt.Errorf("%w: %s", ErrConnectionExists, id)
	}
	h.connections[id] = conn
	h.connecting[id] = pending
	h.connectionsMu.Unlock()

	metrics.ActiveSessions.WithLabelValues(conn.Type()).Inc()

	var hookErr error
	for _, l := range h.handlers() {
		if hookErr = l.OnConnect(ctx, id); hookErr != nil {
			break
		}
	}

	h.connectionsMu.Lock()
	delete(h.connecting, id)
	aborted, reason := pending.aborted, pending.reason
	h.connectionsMu.Unlock()

	if aborted {
		h.disconnectHooks(ctx, id, reason)
		if hookErr != nil {
			metrics.SessionEventsTotal.WithLabelValues("rejected").Inc()
			return fmt.Errorf("connect hook for %s: %w", id, hookErr)
		}
		return fmt.Errorf("%w: %s ended while connecting: %w", ErrConnectionClosed, id, reason)
	}

	if hookErr != nil {
		metrics.SessionEventsTotal.WithLabelValues("rejected").Inc()
		_ = h.UnregisterConnection(ctx, id, hookErr)
		return fmt.Errorf("connect hook for %s: %w", id, hookErr)
	}

	// a Stop that took its session snapshot before the insert above has
	// already cleared running
	if !h.IsRunning() {
		_ = h.UnregisterConnection(ctx, id, ErrHubStopped)
		return ErrHubNotRunning
	}

	metrics.SessionEventsTotal.WithLabelValues("connect").Inc()
	h.logger.Infof("Connection %s registered (type: %s)", id, conn.Type())

	go h.watch(hubCtx, conn)

	return nil
}

// watch unregisters conn once its context ends.
func (h *Hub) watch(hubCtx context.Context, conn Connection) {
	select {
	case <-conn.Context().Done():
		reason := context.Cause(conn.Context())
		_ = h.UnregisterConnection(context.Background(), conn.ID(), fmt.Errorf("%w: %w", ErrConnectionClosed, reason))
	case <-hubCtx.Done():
	}
}

// UnregisterConnection removes a session, closes it and runs every
// OnDisconnect hook. Only the first call for a given id has any effect.
func (h *Hub) UnregisterConnection(ctx context.Context, connID string, reason error) error {
	h.connectionsMu.Lock()
	conn, exists := h.connections[connID]
	pending, connecting := h.connecting[connID]
	if exists {
		delete(h.connections, connID)
		if connecting {
			pending.aborted, pending.reason = true, reason
		}
	}
	h.connectionsMu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}

	if err := conn.Close(); err != nil {
		h.logger.Errorf("Failed to close connection %s: %v", connID, err)
	}
	metrics.ActiveSessions.WithLabelValues(conn.Type()).Dec()
	metrics.SessionEventsTotal.WithLabelValues("disconnect").Inc()

	if connecting {
		h.logger.Infof("Connection %s unregistered while connecting: %v", connID, reason)
		return nil
	}

	h.disconnectHooks(ctx, connID, reason)

	h.logger.Infof("Connection %s unregistered: %v", connID, reason)
	return nil
}

func (h *Hub) disconnectHooks(ctx context.Context, connID string, reason error) {
	for _, l := range h.handlers() {
		l.OnDisconnect(ctx, connID, reason)
	}
}

// GetConnection returns a connection by ID
func (h *Hub) GetConnection(connID string) (Connection, bool) {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	conn, exists := h.connections[connID]
	return conn, exists
}

// GetConnections returns all active connections
func (h *Hub) GetConnections() []Connection {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	connections := make([]Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		connections = append(connections, conn)
	}
	return connections
}

// GetConnectionsByType returns connections of a specific type
func (h *Hub) GetConnectionsByType(connType string) []Connection {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()

	var connections []Connection
	for _, conn := range h.connections {
		if conn.Type() == connType {
			connections = append(connections, conn)
		}
	}
	return connections
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	h.connectionsMu.RLock()
	defer h.connectionsMu.RUnlock()
	return len(h.connections)
}

// GroupMembers returns a snapshot of the connection ids in group
func (h *Hub) GroupMembers(group string) []string {
	return h.groups.snapshot(group)
}

func (h *Hub) GroupMemberCount(group string) int {
	return h.groups.count(group)
}

func (h *Hub) AddToGroup(ctx context.Context, connID, group string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if connID == "" || group == "" {
		return fmt.Errorf("connection id and group are required")
	}

	if h.groups.add(group, connID) {
		h.logger.Debugf("Connection %s joined group %s", connID, group)
	}
	return nil
}

func (h *Hub) RemoveFromGroup(_ context.Context, connID, group string) error {
	if h.groups.remove(group, connID) {
		h.logger.Debugf("Connection %s left group %s", connID, group)
	}
	return nil
}

// SendToGroup invokes event on every member of group. Deliveries run
// concurrently and are not awaited; a member whose delivery fails is
// unregistered.
func (h *Hub) SendToGroup(ctx context.Context, group, event string, args ...any) error {
	// held for the whole dispatch so Stop cannot start waiting on sends
	// while new ones are being added
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()

	if !h.running {
		return ErrHubNotRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	message := InvocationMessage(event, args...)
	if err := h.validator.Validate(message); err != nil {
		return fmt.Errorf("invalid message for group %s: %w", group, err)
	}

	members := h.groups.snapshot(group)
	sent := 0
	for _, id := range members {
		conn, ok := h.GetConnection(id)
		if !ok {
			// member whose session is already gone; its removal is in flight
			continue
		}
		sent++
		h.sends.Add(1)
		go h.deliver(conn, group, message)
	}

	h.logger.Debugf("Sent %s (%s) to %d/%d members of %s", event, message.ID, sent, len(members), group)
	return nil
}

func (h *Hub) deliver(conn Connection, group string, message *Message) {
	defer h.sends.Done()

	ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
	defer cancel()

	if err := conn.Send(ctx, message); err != nil {
		metrics.GroupSendFailures.WithLabelValues(group).Inc()
		h.logger.Errorf("Failed to send %s to connection %s: %v", message.ID, conn.ID(), err)
		_ = h.UnregisterConnection(context.Background(), conn.ID(), fmt.Errorf("send failed: %w", err))
	}
}

// SendToConnection sends a message to a specific connection
func (h *Hub) SendToConnection(ctx context.Context, connID string, message *Message) error {
	conn, exists := h.GetConnection(connID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}

	if err := h.validator.Validate(message); err != nil {
		return err
	}

	if err := conn.Send(ctx, message); err != nil {
		h.logger.Errorf("Failed to send message to connection %s: %v", connID, err)
		_ = h.UnregisterConnection(ctx, connID, fmt.Errorf("send failed: %w", err))
		return err
	}

	return nil
}

// run sweeps sessions that closed without their context ending
func (h *Hub) run(ctx context.Context) {
	defer h.loop.Done()

	ticker := time.NewTicker(h.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.cleanupClosedConnections()

		case <-ctx.Done():
			h.logger.Info("Hub run loop stopped")
			return
		}
	}
}

func (h *Hub) cleanupClosedConnections() {
	h.connectionsMu.RLock()
	closed := make([]string, 0)
	for id, conn := range h.connections {
		if conn.IsClosed() {
			closed = append(closed, id)
		}
	}
	h.connectionsMu.RUnlock()

	for _, id := range closed {
		if err := h.UnregisterConnection(context.Background(), id, ErrConnectionClosed); err == nil {
			h.logger.Infof("Cleaned up closed connection %s", id)
		}
	}
}
