// Package poll runs a probe periodically until a stop condition is met or the
// poll is cancelled.
//
// Ticks are interval driven. When the probe takes longer than the interval the
// probes overlap, their results are applied in completion order and never
// concurrently.
package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/zimg/internal/log"
)

// Config is the configuration of a poll.
type Config[T any] struct {
	// Probe is called immediately and then on every tick.
	Probe func(ctx context.Context) (T, error)
	// Interval is the time between probes.
	Interval time.Duration
	// ShouldStop is checked after every successful update, when true the poll stops.
	// Nil never stops.
	ShouldStop func(T) bool
	// OnUpdate is called with every successful probe result.
	OnUpdate func(T)
	// OnError is called with every failed probe.
	OnError func(error)
	// ContinueOnError keeps polling after a failed probe, by default the poll stops
	// on the first error.
	ContinueOnError bool
	// Logger for logging.
	Logger log.Logger
}

func (c *Config[T]) defaults() error {
	if c.Probe == nil {
		return fmt.Errorf("probe is required")
	}

	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	if c.ShouldStop == nil {
		c.ShouldStop = Never[T]
	}

	if c.OnUpdate == nil {
		c.OnUpdate = func(T) {}
	}

	if c.OnError == nil {
		c.OnError = func(error) {}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "poll.Poller"})

	return nil
}

// Never is a stop predicate that never stops, the poll only ends when cancelled.
func Never[T any](T) bool { return false }

// Handle controls a running poll.
type Handle struct {
	// deliverMu serializes the callbacks, mu only guards the stop state so callbacks
	// can cancel their own handle.
	deliverMu sync.Mutex

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Cancel stops the poll. It's idempotent, safe to call concurrently and from the poll
// callbacks. Once it returns no new callback starts, results of in-flight probes are
// discarded.
func (h *Handle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

// Done returns a channel that is closed when the poll stops, by cancellation or by
// itself.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stopped returns true if the poll has stopped.
func (h *Handle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

func (h *Handle) stopLocked() {
	if h.stopped {
		return
	}
	h.stopped = true
	h.cancel()
	close(h.done)
}

// Start starts polling in the background and returns its handle. Cancelling the
// context has the same effect as cancelling the handle.
func Start[T any](ctx context.Context, cfg Config[T]) (*Handle, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p := poller[T]{cfg: cfg, handle: h}
	go p.run(ctx)

	return h, nil
}

type poller[T any] struct {
	cfg    Config[T]
	handle *Handle
}

func (p poller[T]) run(ctx context.Context) {
	// Parent context cancellation stops the poll like an explicit cancel.
	go func() {
		select {
		case <-ctx.Done():
			p.handle.Cancel()
		case <-p.handle.done:
		}
	}()

	go p.probe(ctx)

	t := time.NewTicker(p.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.handle.done:
			return
		case <-t.C:
			go p.probe(ctx)
		}
	}
}

func (p poller[T]) probe(ctx context.Context) {
	v, err := p.cfg.Probe(ctx)
	p.deliver(ctx, v, err)
}

func (p poller[T]) deliver(ctx context.Context, v T, err error) {
	h := p.handle
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	if h.Stopped() || ctx.Err() != nil {
		p.cfg.Logger.Debugf("Discarding probe result of a stopped poll")
		return
	}

	if err != nil {
		p.cfg.OnError(err)
		if !p.cfg.ContinueOnError {
			p.cfg.Logger.Debugf("Poll stopped by probe error: %s", err)
			h.Cancel()
		}
		return
	}

	p.cfg.OnUpdate(v)
	if p.cfg.ShouldStop(v) {
		p.cfg.Logger.Debugf("Poll stop condition met")
		h.Cancel()
	}
}
