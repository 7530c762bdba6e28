package latest

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

// LatestGetter gets the newest generated image.
type LatestGetter interface {
	GetLatestArtifact(ctx context.Context) (*model.ImageRecord, error)
}

// ServiceConfig is the configuration for the latest image service.
type ServiceConfig struct {
	Client LatestGetter
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

// Service gets the most recent generated image.
type Service struct {
	client LatestGetter
	logger log.Logger
}

// NewService creates a new latest image service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client: cfg.Client,
		logger: cfg.Logger,
	}, nil
}

// Run returns the newest image, nil without error when there are no images yet.
func (s *Service) Run(ctx context.Context) (*model.ImageRecord, error) {
	img, err := s.client.GetLatestArtifact(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Debugf("no images generated yet")
			return nil, nil
		}
		return nil, fmt.Errorf("could not get latest image: %w", err)
	}

	return img, nil
}
