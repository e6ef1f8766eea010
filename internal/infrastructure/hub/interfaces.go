package hub

import "context"

// Connection represents any type of push session (SSE, WebSocket, etc.)
type Connection interface {
	ID() string
	Type() string
	Send(ctx context.Context, message *Message) error
	Close() error
	IsClosed() bool
	Context() context.Context
}

// LifecycleHandler is notified when sessions open and close.
//
// OnConnect runs synchronously inside RegisterConnection; a non-nil error
// rejects the session. OnDisconnect runs exactly once per registered
// session, whatever ended it.
type LifecycleHandler interface {
	OnConnect(ctx context.Context, connID string) error
	OnDisconnect(ctx context.Context, connID string, reason error)
}

// Message is a frame pushed to a client. Invocations carry the client-side
// event name in Target and its arguments in Arguments.
type Message struct {
	ID        string            `json:"id"                  codec:"id"`
	Type      string            `json:"type"                codec:"type"`
	Target    string            `json:"target,omitempty"    codec:"target,omitempty"`
	Arguments []any             `json:"arguments,omitempty" codec:"arguments,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"   codec:"headers,omitempty"`
}
