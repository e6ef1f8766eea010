package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ugorji/go/codec"
)

func TestMessageBuilder_Defaults(t *testing.T) {
	msg := InvocationMessage("NewPushMessage", "hi")

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "invocation", msg.Type)
	assert.Equal(t, "NewPushMessage", msg.Target)
	assert.Equal(t, []any{"hi"}, msg.Arguments)
	_, err := time.Parse(time.RFC3339, msg.Headers["timestamp"])
	assert.NoError(t, err)
}

func TestMessageBuilder_KeepsExplicitValues(t *testing.T) {
	ts := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	msg := NewMessageBuilder().
		WithID("fixed").
		WithType(MessageTypeError).
		WithTimestamp(ts).
		WithHeader("source", "test").
		Build()

	assert.Equal(t, "fixed", msg.ID)
	assert.Equal(t, "2026-10-17T08:00:00Z", msg.Headers["timestamp"])
	assert.Equal(t, "test", msg.Headers["source"])
}

func TestMessageValidator(t *testing.T) {
	v := NewMessageValidator()

	assert.NoError(t, v.Validate(InvocationMessage("E", "a")))
	assert.NoError(t, v.Validate(KeepAliveMessage()))
	assert.Error(t, v.Validate(nil))
	assert.Error(t, v.Validate(&Message{Type: "invocation", Target: "E"}), "missing id")
	assert.Error(t, v.Validate(&Message{ID: "1", Type: "chat"}), "unknown type")
	assert.Error(t, v.Validate(&Message{ID: "1", Type: "invocation"}), "missing target")
	assert.Error(t, v.Validate(&Message{ID: "1", Type: "invocation", Target: "E", Arguments: []any{make(chan int)}}))
}

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"", "json", "JSON"} {
		c, err := CodecByName(name)
		require.NoError(t, err)
		assert.Equal(t, ProtocolJSON, c.Name())
		assert.Equal(t, websocket.TextMessage, c.FrameType())
	}

	c, err := CodecByName("msgpack")
	require.NoError(t, err)
	assert.Equal(t, ProtocolMessagePack, c.Name())
	assert.Equal(t, websocket.BinaryMessage, c.FrameType())

	_, err = CodecByName("xml")
	assert.Error(t, err)
}

func TestJSONCodec_Encode(t *testing.T) {
	c, _ := CodecByName(ProtocolJSON)
	data, err := c.Encode(&Message{ID: "1", Type: "invocation", Target: "NewPushMessage", Arguments: []any{"a &amp; b"}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "NewPushMessage", decoded["target"])
	assert.Equal(t, []any{"a &amp; b"}, decoded["arguments"])
	assert.NotContains(t, decoded, "headers")
}

func TestMsgpackCodec_RoundTrip(t *testing.T) {
	c, _ := CodecByName(ProtocolMessagePack)
	data, err := c.Encode(InvocationMessage("NewPushMessage", "delivered"))
	require.NoError(t, err)

	var decoded struct {
		ID        string   `codec:"id"`
		Type      string   `codec:"type"`
		Target    string   `codec:"target"`
		Arguments []string `codec:"arguments"`
	}
	require.NoError(t, codec.NewDecoderBytes(data, &codec.MsgpackHandle{}).Decode(&decoded))

	assert.NotEmpty(t, decoded.ID)
	assert.Equal(t, "invocation", decoded.Type)
	assert.Equal(t, "NewPushMessage", decoded.Target)
	assert.Equal(t, []string{"delivered"}, decoded.Arguments)
}
