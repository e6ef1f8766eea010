package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"go-push-notification/internal/infrastructure/logger"
)

var (
	ErrAlreadyRunning  = errors.New("periodic task already running")
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrTickPanicked    = errors.New("tick panicked")
	ErrStillStopping   = errors.New("previous run still has a tick in flight")
)

// TickFunc is one unit of periodic work.
type TickFunc func(ctx context.Context) error

// PeriodicTask runs a TickFunc immediately on Start and then again each
// interval after the previous tick returns (fixed delay). Ticks run on a
// single goroutine and therefore never overlap; a slow tick delays the next
// one rather than being skipped.
//
// Errors and panics from a tick never escape it: they go to the error
// handler and the schedule continues. There is no retry inside a tick.
type PeriodicTask struct {
	name     string
	interval time.Duration
	fn       TickFunc
	onError  func(error)
	clock    clockwork.Clock
	logger   logger.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

type TaskOption func(*PeriodicTask)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) TaskOption {
	return func(t *PeriodicTask) { t.clock = clock }
}

// WithErrorHandler receives every error or recovered panic from a tick.
// Without one, errors are logged.
func WithErrorHandler(fn func(error)) TaskOption {
	return func(t *PeriodicTask) { t.onError = fn }
}

func NewPeriodicTask(name string, interval time.Duration, fn TickFunc, log logger.Logger, opts ...TaskOption) *PeriodicTask {
	t := &PeriodicTask{
		name:     name,
		interval: interval,
		fn:       fn,
		clock:    clockwork.NewRealClock(),
		logger:   log.WithField("task", name),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start moves the task to Running and schedules the first tick with no
// delay. Cancelling ctx stops the schedule like Stop does; ticks themselves
// run on a context that is not cancelled by either. Start fails with
// ErrStillStopping until the tick left running by a timed-out Stop returns.
func (t *PeriodicTask) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}
	if t.interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, t.interval)
	}
	// a Stop that timed out leaves its loop finishing a tick
	if t.done != nil {
		select {
		case <-t.done:
		default:
			return ErrStillStopping
		}
	}

	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.running = true

	go t.loop(ctx, t.stop, t.done)

	t.logger.Infof("Periodic task started (interval %s)", t.interval)
	return nil
}

// Stop moves the task to Stopped. No tick starts after Stop returns. A
// tick already executing is allowed to finish; Stop waits for it until ctx
// expires. Stopping a stopped task is a no-op.
func (t *PeriodicTask) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	close(t.stop)
	done := t.done
	t.mu.Unlock()

	select {
	case <-done:
		t.logger.Info("Periodic task stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight tick of %s: %w", t.name, ctx.Err())
	}
}

func (t *PeriodicTask) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *PeriodicTask) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer func() {
		t.mu.Lock()
		if t.stop == stop {
			t.running = false
		}
		close(done)
		t.mu.Unlock()
	}()

	tickCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		t.runTick(tickCtx)

		timer := t.clock.NewTimer(t.interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

func (t *PeriodicTask) runTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.report(fmt.Errorf("%w: %v", ErrTickPanicked, r))
		}
	}()

	if err := t.fn(ctx); err != nil {
		t.report(err)
	}
}

func (t *PeriodicTask) report(err error) {
	if t.onError != nil {
		t.onError(err)
		return
	}
	t.logger.Warnf("Tick failed: %v", err)
}
