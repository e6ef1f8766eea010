// Package push holds the broadcast core: a connection registry that keeps
// group membership in step with session lifecycle, and a publisher that
// periodically sends a message to the whole group.
package push

import (
	"context"
	"fmt"

	"go-push-notification/internal/infrastructure/logger"
	"go-push-notification/internal/port/outbound"
)

// DefaultGroup is the broadcast group every session joins.
const DefaultGroup = "ShippingHub"

// ConnectionRegistry adds sessions to the broadcast group on connect and
// removes them on disconnect. It is registered with the transport as a
// lifecycle handler.
type ConnectionRegistry struct {
	transport outbound.GroupTransport
	group     string
	logger    logger.Logger
}

func NewConnectionRegistry(transport outbound.GroupTransport, group string, log logger.Logger) *ConnectionRegistry {
	if group == "" {
		group = DefaultGroup
	}
	return &ConnectionRegistry{
		transport: transport,
		group:     group,
		logger:    log.WithFields(logger.Fields{"component": "registry", "group": group}),
	}
}

func (r *ConnectionRegistry) Group() string { return r.group }

// OnConnect joins connID to the group. The error is returned so the
// transport can refuse the session.
func (r *ConnectionRegistry) OnConnect(ctx context.Context, connID string) error {
	if err := r.transport.AddToGroup(ctx, connID, r.group); err != nil {
		return fmt.Errorf("add %s to group %s: %w", connID, r.group, err)
	}
	r.logger.Debugf("Connection %s joined", connID)
	return nil
}

// OnDisconnect removes connID from the group whatever the reason. The
// session is already gone, so failures are only logged.
func (r *ConnectionRegistry) OnDisconnect(ctx context.Context, connID string, reason error) {
	if err := r.transport.RemoveFromGroup(ctx, connID, r.group); err != nil {
		r.logger.Warnf("Failed to remove %s from group: %v", connID, err)
		return
	}
	if reason != nil {
		r.logger.Debugf("Connection %s left: %v", connID, reason)
		return
	}
	r.logger.Debugf("Connection %s left", connID)
}
