package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-push-notification/internal/infrastructure/logger"
	"go-push-notification/internal/port/inbound"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPushUseCase struct {
	published  []string
	publishErr error
	status     inbound.PushStatus
	conns      []inbound.ConnectionInfo
	lastType   string
}

func (s *stubPushUseCase) PublishNow(_ context.Context, text string) (string, error) {
	s.published = append(s.published, text)
	if s.publishErr != nil {
		return "", s.publishErr
	}
	return "2026-10-17 09:30:00: " + text, nil
}

func (s *stubPushUseCase) Status() inbound.PushStatus { return s.status }

func (s *stubPushUseCase) Connections(connType string) []inbound.ConnectionInfo {
	s.lastType = connType
	return s.conns
}

func newTestRouter(uc inbound.PushUseCase) *gin.Engine {
	h := NewPushHandler(uc, logger.NewNopLogger())
	r := gin.New()
	r.GET("/hub/status", h.Status)
	r.GET("/api/v1/connections", h.Connections)
	r.POST("/api/v1/push", h.Publish)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPushHandler_Publish(t *testing.T) {
	uc := &stubPushUseCase{status: inbound.PushStatus{GroupMembers: 3}}
	w := serve(newTestRouter(uc), http.MethodPost, "/api/v1/push", `{"message":"Parcel left the depot"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp PushMessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sent", resp.Status)
	assert.Equal(t, "2026-10-17 09:30:00: Parcel left the depot", resp.Message)
	assert.Equal(t, 3, resp.Recipients)
	assert.Equal(t, []string{"Parcel left the depot"}, uc.published)
}

func TestPushHandler_PublishRejectsBadBodies(t *testing.T) {
	uc := &stubPushUseCase{}
	r := newTestRouter(uc)

	for _, body := range []string{``, `{}`, `{"message":""}`, `not json`, `{"message":"` + strings.Repeat("x", 1025) + `"}`} {
		w := serve(r, http.MethodPost, "/api/v1/push", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
	assert.Empty(t, uc.published)
}

func TestPushHandler_PublishFailure(t *testing.T) {
	uc := &stubPushUseCase{publishErr: errors.New("hub is not running")}
	w := serve(newTestRouter(uc), http.MethodPost, "/api/v1/push", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPushHandler_Connections(t *testing.T) {
	uc := &stubPushUseCase{conns: []inbound.ConnectionInfo{
		{ID: "a", Type: "sse"},
		{ID: "b", Type: "sse"},
	}}
	w := serve(newTestRouter(uc), http.MethodGet, "/api/v1/connections?type=sse", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp ConnectionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalConnections)
	assert.Equal(t, "b", resp.Connections[1].ID)
	assert.Equal(t, "sse", uc.lastType)
}

func TestPushHandler_Status(t *testing.T) {
	uc := &stubPushUseCase{status: inbound.PushStatus{
		HubRunning:       true,
		PublisherRunning: true,
		Connections:      1,
		Group:            "ShippingHub",
		GroupMembers:     1,
	}}
	r := newTestRouter(uc)

	w := serve(r, http.MethodGet, "/hub/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"hub_running":true,"publisher_running":true,"connections":1,"group":"ShippingHub","group_members":1}`,
		w.Body.String())

	uc.status.PublisherRunning = false
	w = serve(r, http.MethodGet, "/hub/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPushHandler_PublishBlankMessage(t *testing.T) {
	uc := &stubPushUseCase{publishErr: inbound.ErrEmptyMessage}
	w := serve(newTestRouter(uc), http.MethodPost, "/api/v1/push", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
