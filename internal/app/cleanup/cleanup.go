package cleanup

import (
	"context"
	"fmt"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

// HistoryCleaner runs the image service history retention.
type HistoryCleaner interface {
	CleanupHistory(ctx context.Context) (*model.CleanupResult, error)
}

// ServiceConfig is the configuration for the cleanup service.
type ServiceConfig struct {
	Client HistoryCleaner
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service triggers the remote history cleanup.
type Service struct {
	client HistoryCleaner
	logger log.Logger
}

// NewService creates a new cleanup service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client: cfg.Client,
		logger: cfg.Logger,
	}, nil
}

// Run deletes the images out of the service retention and returns the counts.
func (s *Service) Run(ctx context.Context) (*model.CleanupResult, error) {
	res, err := s.client.CleanupHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not cleanup history: %w", err)
	}

	s.logger.Infof("History cleanup deleted %d images, %d remaining", res.DeletedCount, res.RemainingCount)

	return res, nil
}
