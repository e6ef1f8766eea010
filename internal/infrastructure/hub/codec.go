package hub

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/ugorji/go/codec"
)

// Codec turns a Message into a WebSocket frame payload.
type Codec interface {
	Name() string
	// FrameType is the websocket message type the payload is written as.
	FrameType() int
	Encode(message *Message) ([]byte, error)
}

const (
	ProtocolJSON        = "json"
	ProtocolMessagePack = "messagepack"
)

// CodecByName resolves the ?protocol= value a client asked for. An empty
// name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", ProtocolJSON:
		return jsonCodec{}, nil
	case ProtocolMessagePack, "msgpack":
		return newMsgpackCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return ProtocolJSON }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(message *Message) ([]byte, error) {
	return json.Marshal(message)
}

type msgpackCodec struct {
	handle *codec.MsgpackHandle
}

func newMsgpackCodec() *msgpackCodec {
	h := &codec.MsgpackHandle{}
	// str8 and bin types, as current msgpack clients expect
	h.WriteExt = true
	return &msgpackCodec{handle: h}
}

func (c *msgpackCodec) Name() string   { return ProtocolMessagePack }
func (c *msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (c *msgpackCodec) Encode(message *Message) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, c.handle).Encode(message); err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	return buf, nil
}
