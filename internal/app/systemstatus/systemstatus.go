package systemstatus

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/monitor"
)

// ServiceConfig is the configuration for the system status service.
type ServiceConfig struct {
	Client monitor.StatusClient
	// WatchInterval is the polling interval when watching.
	WatchInterval time.Duration
	Logger        log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.WatchInterval <= 0 {
		c.WatchInterval = monitor.DefaultInterval
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service gets the image service host status.
type Service struct {
	client        monitor.StatusClient
	watchInterval time.Duration
	logger        log.Logger
}

// NewService creates a new system status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client:        cfg.Client,
		watchInterval: cfg.WatchInterval,
		logger:        cfg.Logger,
	}, nil
}

// Request represents the system status request parameters.
type Request struct {
	// Watch keeps polling until the context ends, every probe is notified with
	// OnUpdate.
	Watch    bool
	OnUpdate func(status *model.SystemStatus, err error)
}

// Run returns the host status. When watching it blocks until the context ends and
// returns the last known status.
func (s *Service) Run(ctx context.Context, req Request) (*model.SystemStatus, error) {
	if !req.Watch {
		status, err := s.client.GetSystemStatus(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not get system status: %w", err)
		}
		return status, nil
	}

	mon, err := monitor.NewMonitor(monitor.MonitorConfig{
		Client:   s.client,
		Interval: s.watchInterval,
		OnUpdate: req.OnUpdate,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create monitor: %w", err)
	}

	if err := mon.Start(ctx); err != nil {
		return nil, err
	}
	defer mon.Stop()

	s.logger.Debugf("watching system status every %s", s.watchInterval)
	<-mon.Done()

	status, err := mon.Latest()
	if status == nil && err != nil {
		return nil, fmt.Errorf("could not get system status: %w", err)
	}

	return status, nil
}
