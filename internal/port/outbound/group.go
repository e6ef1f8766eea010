package outbound

import "context"

// GroupTransport is the push-delivery transport as seen by the application
// layer: named groups of live connections addressed as a whole.
type GroupTransport interface {
	// AddToGroup makes connID a member of group. Adding an existing member
	// is a no-op.
	AddToGroup(ctx context.Context, connID, group string) error
	// RemoveFromGroup drops connID from group. Unknown ids are a no-op.
	RemoveFromGroup(ctx context.Context, connID, group string) error
	// SendToGroup invokes event with args on every current member of group.
	// It does not wait for per-connection delivery.
	SendToGroup(ctx context.Context, group, event string, args ...any) error
}
