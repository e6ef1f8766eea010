package facade

import (
	"context"
	"sort"
	"strings"

	"go-push-notification/internal/application/push"
	"go-push-notification/internal/infrastructure/hub"
	"go-push-notification/internal/port/inbound"
)

// PushApplicationService exposes the publisher and the hub to the HTTP
// handlers without leaking either type.
type PushApplicationService struct {
	publisher *push.Publisher
	hub       *hub.Hub
}

var _ inbound.PushUseCase = (*PushApplicationService)(nil)

func NewPushApplicationService(publisher *push.Publisher, hubInstance *hub.Hub) *PushApplicationService {
	return &PushApplicationService{
		publisher: publisher,
		hub:       hubInstance,
	}
}

func (s *PushApplicationService) PublishNow(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", inbound.ErrEmptyMessage
	}
	return s.publisher.Publish(ctx, text)
}

func (s *PushApplicationService) Status() inbound.PushStatus {
	group := s.publisher.Group()
	return inbound.PushStatus{
		HubRunning:       s.hub.IsRunning(),
		PublisherRunning: s.publisher.Running(),
		Connections:      s.hub.ConnectionCount(),
		Group:            group,
		GroupMembers:     s.hub.GroupMemberCount(group),
	}
}

// Connections lists live sessions sorted by id, optionally restricted to one
// connection type.
func (s *PushApplicationService) Connections(connType string) []inbound.ConnectionInfo {
	var conns []hub.Connection
	if connType == "" {
		conns = s.hub.GetConnections()
	} else {
		conns = s.hub.GetConnectionsByType(connType)
	}
	infos := make([]inbound.ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		infos = append(infos, inbound.ConnectionInfo{
			ID:     c.ID(),
			Type:   c.Type(),
			Closed: c.IsClosed(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
