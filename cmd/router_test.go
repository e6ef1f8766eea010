package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-push-notification/internal/application/facade"
	"go-push-notification/internal/application/push"
	"go-push-notification/internal/infrastructure/config"
	"go-push-notification/internal/infrastructure/hub"
	"go-push-notification/internal/infrastructure/logger"
)

func TestInitRouter_Routes(t *testing.T) {
	cfg, err := config.Load([]string{"--interval", "1h"})
	require.NoError(t, err)
	cfg.Limits.ConnectBurst = 1
	cfg.Limits.ConnectRate = 0.001

	log := logger.NewNopLogger()
	h := hub.New(log)
	h.RegisterLifecycle(push.NewConnectionRegistry(h, cfg.Push.Group, log))
	require.NoError(t, h.Start(context.Background()))
	defer h.Stop(context.Background())

	publisher := push.NewPublisher(h, push.PublisherConfig{Interval: cfg.Push.Interval}, clockwork.NewFakeClock(), log)
	require.NoError(t, publisher.Start(context.Background()))
	defer publisher.Stop(context.Background())

	router := InitRouter(cfg, h, facade.NewPushApplicationService(publisher, h), log)

	for _, path := range []string{"/", "/metrics", "/hub/status", "/api/v1/connections"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	// the second session attempt from one client exceeds the burst
	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pushHub?protocol=xml", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestApplication_RunStopsEverythingOnCancel(t *testing.T) {
	log := logger.NewNopLogger()
	h := hub.New(log)
	require.NoError(t, h.Start(context.Background()))
	publisher := push.NewPublisher(h, push.PublisherConfig{}, clockwork.NewFakeClock(), log)
	require.NoError(t, publisher.Start(context.Background()))

	srv := &fakeServer{started: make(chan struct{}), stopped: make(chan struct{})}
	app := newApplication(log, srv, h, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, publisher.Running())
	assert.False(t, h.IsRunning())
}

type fakeServer struct {
	started chan struct{}
	stopped chan struct{}
}

func (s *fakeServer) Start(context.Context) error {
	close(s.started)
	<-s.stopped
	return nil
}

func (s *fakeServer) Stop(context.Context) error {
	close(s.stopped)
	return nil
}
