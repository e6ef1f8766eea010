package inbound

import (
	"context"
	"errors"
)

// ErrEmptyMessage rejects a publish whose text is blank after trimming.
var ErrEmptyMessage = errors.New("message is empty")

// PushStatus is a point-in-time view of the push service.
type PushStatus struct {
	HubRunning       bool   `json:"hub_running"`
	PublisherRunning bool   `json:"publisher_running"`
	Connections      int    `json:"connections"`
	Group            string `json:"group"`
	GroupMembers     int    `json:"group_members"`
}

// ConnectionInfo describes one live session.
type ConnectionInfo struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Closed bool   `json:"closed"`
}

type PushUseCase interface {
	// PublishNow sends text to the broadcast group immediately, using the
	// same formatting and escaping as a scheduled tick. It returns the
	// delivered string.
	PublishNow(ctx context.Context, text string) (string, error)
	Status() PushStatus
	// Connections lists live sessions; an empty connType lists all of them.
	Connections(connType string) []ConnectionInfo
}
