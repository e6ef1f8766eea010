package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType defines the frame kinds a client can receive
type MessageType string

const (
	MessageTypeInvocation MessageType = "invocation"
	MessageTypeConnected  MessageType = "connected"
	MessageTypeKeepAlive  MessageType = "keepalive"
	MessageTypeError      MessageType = "error"
)

// MessageBuilder helps build messages with fluent interface
type MessageBuilder struct {
	message *Message
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			Headers: make(map[string]string),
		},
	}
}

func (mb *MessageBuilder) WithID(id string) *MessageBuilder {
	mb.message.ID = id
	return mb
}

func (mb *MessageBuilder) WithType(msgType MessageType) *MessageBuilder {
	mb.message.Type = string(msgType)
	return mb
}

// WithTarget sets the client-side event name of an invocation
func (mb *MessageBuilder) WithTarget(target string) *MessageBuilder {
	mb.message.Target = target
	return mb
}

func (mb *MessageBuilder) WithArguments(args ...any) *MessageBuilder {
	mb.message.Arguments = args
	return mb
}

func (mb *MessageBuilder) WithHeader(key, value string) *MessageBuilder {
	if mb.message.Headers == nil {
		mb.message.Headers = make(map[string]string)
	}
	mb.message.Headers[key] = value
	return mb
}

func (mb *MessageBuilder) WithTimestamp(t time.Time) *MessageBuilder {
	return mb.WithHeader("timestamp", t.UTC().Format(time.RFC3339))
}

// Build returns the constructed message, filling in an ID and timestamp
// when missing
func (mb *MessageBuilder) Build() *Message {
	if mb.message.ID == "" {
		mb.message.ID = uuid.NewString()
	}

	if _, exists := mb.message.Headers["timestamp"]; !exists {
		mb.WithTimestamp(time.Now())
	}

	return mb.message
}

// InvocationMessage asks the client to run its handler for target with args
func InvocationMessage(target string, args ...any) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeInvocation).
		WithTarget(target).
		WithArguments(args...).
		Build()
}

// ConnectedMessage greets a freshly registered session with its id
func ConnectedMessage(connID string) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeConnected).
		WithArguments(connID).
		Build()
}

func KeepAliveMessage() *Message {
	return NewMessageBuilder().
		WithType(MessageTypeKeepAlive).
		Build()
}

// MessageValidator validates messages before sending
type MessageValidator struct{}

func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

func (mv *MessageValidator) Validate(message *Message) error {
	if message == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if message.ID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}

	if !IsValidMessageType(message.Type) {
		return fmt.Errorf("unknown message type %q", message.Type)
	}

	if message.Type == string(MessageTypeInvocation) && message.Target == "" {
		return fmt.Errorf("invocation target cannot be empty")
	}

	if len(message.Arguments) > 0 {
		if _, err := json.Marshal(message.Arguments); err != nil {
			return fmt.Errorf("message arguments must be JSON serializable: %w", err)
		}
	}

	return nil
}

func IsValidMessageType(msgType string) bool {
	switch MessageType(msgType) {
	case MessageTypeInvocation, MessageTypeConnected, MessageTypeKeepAlive, MessageTypeError:
		return true
	}
	return false
}
