package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/poll"
)

// DefaultInterval is the system status polling interval.
const DefaultInterval = 3 * time.Second

// StatusClient is the image service API used by the monitor.
type StatusClient interface {
	GetSystemStatus(ctx context.Context) (*model.SystemStatus, error)
}

// MonitorConfig is the configuration of the monitor.
type MonitorConfig struct {
	Client   StatusClient
	Interval time.Duration
	// OnUpdate is called after every probe with the latest status (nil until the first
	// success) and the probe error (nil on success).
	OnUpdate func(status *model.SystemStatus, err error)
	Logger   log.Logger
}

func (c *MonitorConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}

	if c.OnUpdate == nil {
		c.OnUpdate = func(*model.SystemStatus, error) {}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "monitor.Monitor"})

	return nil
}

// Monitor polls the image service host status until stopped. A failed probe doesn't
// stop it, the error is kept until the next success.
type Monitor struct {
	client   StatusClient
	interval time.Duration
	onUpdate func(*model.SystemStatus, error)
	logger   log.Logger

	mu     sync.Mutex
	status *model.SystemStatus
	err    error
	handle *poll.Handle
}

// NewMonitor returns a new system status monitor.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Monitor{
		client:   cfg.Client,
		interval: cfg.Interval,
		onUpdate: cfg.OnUpdate,
		logger:   cfg.Logger,
	}, nil
}

// Start starts polling, it's bound to ctx. Starting an already started monitor
// replaces the running polling, it's safe to call concurrently.
func (m *Monitor) Start(ctx context.Context) error {
	h, err := poll.Start(ctx, poll.Config[*model.SystemStatus]{
		Probe:           m.client.GetSystemStatus,
		Interval:        m.interval,
		ShouldStop:      poll.Never[*model.SystemStatus],
		OnUpdate:        m.applyStatus,
		OnError:         m.applyError,
		ContinueOnError: true,
		Logger:          m.logger,
	})
	if err != nil {
		return fmt.Errorf("could not start system status polling: %w", err)
	}

	m.mu.Lock()
	prev := m.handle
	m.handle = h
	m.mu.Unlock()

	// Cancel outside the lock, the polling callbacks take it.
	if prev != nil {
		prev.Cancel()
	}

	return nil
}

// Stop stops polling, the last status is kept.
func (m *Monitor) Stop() {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
}

// Done returns a channel closed when the polling stops, nil if it was never started.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return nil
	}
	return m.handle.Done()
}

// Latest returns the last known status and the error of the last probe.
func (m *Monitor) Latest() (*model.SystemStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.err
}

func (m *Monitor) applyStatus(s *model.SystemStatus) {
	m.mu.Lock()
	m.status = s
	m.err = nil
	m.mu.Unlock()

	m.onUpdate(s, nil)
}

func (m *Monitor) applyError(err error) {
	m.logger.Warningf("System status probe failed: %s", err)

	m.mu.Lock()
	m.err = err
	status := m.status
	m.mu.Unlock()

	m.onUpdate(status, err)
}
