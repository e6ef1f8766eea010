package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go-push-notification/internal/infrastructure/logger"
)

type HTTPServer struct {
	addr    string
	handler http.Handler
	logger  logger.Logger

	mu  sync.Mutex
	srv *http.Server
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(addr string, handler http.Handler, log logger.Logger) *HTTPServer {
	return &HTTPServer{
		addr:    addr,
		handler: handler,
		logger:  log.WithField("component", "http"),
	}
}

// Start serves until Stop is called. There is no WriteTimeout: push
// sessions are long-lived responses.
func (h *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              h.addr,
		Handler:           h.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	h.mu.Lock()
	h.srv = srv
	h.mu.Unlock()

	var eg errgroup.Group
	eg.Go(func() error {
		h.logger.Infof("HTTP server listening on %s", h.addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	h.mu.Lock()
	srv := h.srv
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
