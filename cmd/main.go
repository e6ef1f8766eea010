package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"go-push-notification/internal/application/facade"
	"go-push-notification/internal/application/push"
	"go-push-notification/internal/infrastructure/config"
	"go-push-notification/internal/infrastructure/hub"
	"go-push-notification/internal/infrastructure/logger"
	"go-push-notification/internal/infrastructure/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogrusLogger(cfg.LoggerConfig())
	sctx := WithSignal(context.Background())

	hubInstance := hub.New(log, hub.WithSendTimeout(cfg.Push.SendTimeout))
	registry := push.NewConnectionRegistry(hubInstance, cfg.Push.Group, log)
	// hooks must be in place before the first session can arrive
	hubInstance.RegisterLifecycle(registry)

	if err := hubInstance.Start(sctx); err != nil {
		log.Fatalf("failed to start hub: %v", err)
	}

	publisher := push.NewPublisher(hubInstance, push.PublisherConfig{
		Group:       registry.Group(),
		Interval:    cfg.Push.Interval,
		SendTimeout: cfg.Push.SendTimeout,
	}, clockwork.NewRealClock(), log)
	if err := publisher.Start(sctx); err != nil {
		log.Fatalf("failed to start publisher: %v", err)
	}
	log.Infof("publishing to group %s every %s", registry.Group(), cfg.Push.Interval)

	pushService := facade.NewPushApplicationService(publisher, hubInstance)
	router := InitRouter(cfg, hubInstance, pushService, log)
	httpSrv := server.NewHTTPServer(cfg.Server.Addr, router, log)

	app := newApplication(log, httpSrv, hubInstance, publisher)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
		os.Exit(1)
	}
}

type Application struct {
	logger    logger.Logger
	httpSrv   server.Server
	hub       *hub.Hub
	publisher *push.Publisher
}

func newApplication(
	logger logger.Logger,
	httpSrv server.Server,
	hubInstance *hub.Hub,
	publisher *push.Publisher,
) *Application {
	return &Application{
		logger:    logger.WithField("app", "push"),
		httpSrv:   httpSrv,
		hub:       hubInstance,
		publisher: publisher,
	}
}

// Run serves until ctx is cancelled, then stops the publisher, the hub and
// finally the HTTP server, in that order.
func (app *Application) Run(ctx context.Context) error {
	eg := errgroup.Group{}

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()
		app.logger.Info("shutting down")

		gracefulshutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.publisher.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop publisher: %v", err)
		}

		// closing every session first lets the HTTP handlers return
		if err := app.hub.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
