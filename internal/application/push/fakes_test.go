package push

import (
	"context"
	"sort"
	"sync"

	"go-push-notification/internal/infrastructure/hub"
)

type sendCall struct {
	Group string
	Event string
	Args  []any
}

// fakeTransport is an in-memory GroupTransport with set semantics.
type fakeTransport struct {
	mu      sync.Mutex
	members map[string]map[string]struct{}
	calls   []sendCall

	addErr    error
	removeErr error
	// sendErr, when set, decides the result of the n-th SendToGroup (1-based)
	sendErr func(n int) error
	// block, when set, is received from inside SendToGroup
	block chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{members: make(map[string]map[string]struct{})}
}

func (f *fakeTransport) AddToGroup(_ context.Context, connID, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	if f.members[group] == nil {
		f.members[group] = make(map[string]struct{})
	}
	f.members[group][connID] = struct{}{}
	return nil
}

func (f *fakeTransport) RemoveFromGroup(_ context.Context, connID, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.members[group], connID)
	return nil
}

func (f *fakeTransport) SendToGroup(_ context.Context, group, event string, args ...any) error {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sendCall{Group: group, Event: event, Args: args})
	if f.sendErr != nil {
		return f.sendErr(len(f.calls))
	}
	return nil
}

func (f *fakeTransport) sent() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.calls...)
}

func (f *fakeTransport) group(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.members[name]))
	for id := range f.members[name] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// stubConnection satisfies hub.Connection for tests that drive a real hub.
type stubConnection struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
}

func newStubConnection(id string) *stubConnection {
	ctx, cancel := context.WithCancel(context.Background())
	return &stubConnection{id: id, ctx: ctx, cancel: cancel}
}

func (s *stubConnection) ID() string   { return s.id }
func (s *stubConnection) Type() string { return "stub" }
func (s *stubConnection) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	return nil
}
func (s *stubConnection) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
func (s *stubConnection) Context() context.Context { return s.ctx }

func (s *stubConnection) Send(_ context.Context, _ *hub.Message) error {
	if s.IsClosed() {
		return hub.ErrConnectionClosed
	}
	return nil
}
