package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-push-notification/internal/application/push"
	"go-push-notification/internal/infrastructure/hub"
	"go-push-notification/internal/infrastructure/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type event struct {
	name string
	data string
}

// readEvent returns the next named event from an SSE stream.
func readEvent(t *testing.T, r *bufio.Reader) event {
	t.Helper()
	var ev event
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && ev.name != "":
			return ev
		}
	}
}

func newTestServer(t *testing.T, start bool) (*httptest.Server, *hub.Hub) {
	t.Helper()
	log := logger.NewNopLogger()
	h := hub.New(log)
	h.RegisterLifecycle(push.NewConnectionRegistry(h, push.DefaultGroup, log))
	if start {
		require.NoError(t, h.Start(context.Background()))
	}

	r := gin.New()
	InitSSERouter(log, h, r.Group(""))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		_ = h.Stop(context.Background())
		srv.Close()
	})
	return srv, h
}

func TestServerSentEventHandler_StreamsGroupMessages(t *testing.T) {
	srv, h := newTestServer(t, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/pushHub/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	connected := readEvent(t, reader)
	assert.Equal(t, "connected", connected.name)

	// the session joined the group before the greeting was written
	assert.Equal(t, 1, h.GroupMemberCount(push.DefaultGroup))

	require.NoError(t, h.SendToGroup(context.Background(), push.DefaultGroup, push.DefaultEvent, "2026-10-17 09:30:00: hi"))
	ev := readEvent(t, reader)
	assert.Equal(t, push.DefaultEvent, ev.name)

	var msg hub.Message
	require.NoError(t, json.Unmarshal([]byte(ev.data), &msg))
	assert.Equal(t, []any{"2026-10-17 09:30:00: hi"}, msg.Arguments)

	cancel()
	assert.Eventually(t, func() bool {
		return h.ConnectionCount() == 0 && h.GroupMemberCount(push.DefaultGroup) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerSentEventHandler_HubNotRunning(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/pushHub/sse")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}
