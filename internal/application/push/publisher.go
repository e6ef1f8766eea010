package push

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/jonboulle/clockwork"

	"go-push-notification/internal/infrastructure/logger"
	"go-push-notification/internal/infrastructure/metrics"
	"go-push-notification/internal/port/outbound"
)

const (
	DefaultInterval    = 30 * time.Second
	DefaultSendTimeout = 10 * time.Second
	DefaultEvent       = "NewPushMessage"
	DefaultPayload     = "Your order just got delivered."

	// TimestampLayout prefixes every published message.
	TimestampLayout = time.DateTime
)

type PublisherConfig struct {
	Group       string
	Event       string
	Payload     string
	Interval    time.Duration
	SendTimeout time.Duration
}

func (c PublisherConfig) withDefaults() PublisherConfig {
	if c.Group == "" {
		c.Group = DefaultGroup
	}
	if c.Event == "" {
		c.Event = DefaultEvent
	}
	if c.Payload == "" {
		c.Payload = DefaultPayload
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	return c
}

// Publisher sends the simulated "order delivered" event to the whole group
// on every tick of its PeriodicTask. It never enumerates connections; the
// group is addressed through the transport.
type Publisher struct {
	transport outbound.GroupTransport
	cfg       PublisherConfig
	clock     clockwork.Clock
	logger    logger.Logger
	task      *PeriodicTask
}

func NewPublisher(transport outbound.GroupTransport, cfg PublisherConfig, clock clockwork.Clock, log logger.Logger) *Publisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cfg = cfg.withDefaults()

	p := &Publisher{
		transport: transport,
		cfg:       cfg,
		clock:     clock,
		logger:    log.WithFields(logger.Fields{"component": "publisher", "group": cfg.Group}),
	}
	p.task = NewPeriodicTask("publisher", cfg.Interval, p.tick, log,
		WithClock(clock),
		WithErrorHandler(p.tickFailed),
	)
	return p
}

func (p *Publisher) Start(ctx context.Context) error {
	if err := p.task.Start(ctx); err != nil {
		return fmt.Errorf("start publisher: %w", err)
	}
	return nil
}

func (p *Publisher) Stop(ctx context.Context) error {
	return p.task.Stop(ctx)
}

func (p *Publisher) Running() bool { return p.task.Running() }

func (p *Publisher) Group() string { return p.cfg.Group }

// Format stamps text with the current time and HTML-escapes the result, so
// clients can insert it into the page as literal text.
func (p *Publisher) Format(text string) string {
	return html.EscapeString(fmt.Sprintf("%s: %s", p.clock.Now().Format(TimestampLayout), text))
}

// Publish formats text and hands it to the transport for group-wide
// delivery. It returns the string that was sent.
func (p *Publisher) Publish(ctx context.Context, text string) (string, error) {
	message := p.Format(text)

	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout)
	defer cancel()

	if err := p.transport.SendToGroup(sendCtx, p.cfg.Group, p.cfg.Event, message); err != nil {
		return message, fmt.Errorf("send %s to group %s: %w", p.cfg.Event, p.cfg.Group, err)
	}
	return message, nil
}

func (p *Publisher) tick(ctx context.Context) error {
	start := p.clock.Now()
	defer func() {
		metrics.PublisherTickDuration.Observe(p.clock.Since(start).Seconds())
	}()

	message, err := p.Publish(ctx, p.cfg.Payload)
	if err != nil {
		return err
	}

	metrics.PublisherTicksTotal.WithLabelValues("ok").Inc()
	p.logger.Debugf("Published %q", message)
	return nil
}

// tickFailed is the only place tick errors surface. The next tick is the
// retry.
func (p *Publisher) tickFailed(err error) {
	status := "error"
	if errors.Is(err, ErrTickPanicked) {
		status = "panic"
	}
	metrics.PublisherTicksTotal.WithLabelValues(status).Inc()
	p.logger.Warnf("Publisher tick failed: %v", err)
}
