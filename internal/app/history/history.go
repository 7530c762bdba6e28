package history

import (
	"context"
	"fmt"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

// Gallery is the paginated history view.
type Gallery interface {
	LoadPage(ctx context.Context, page int) error
	Page() model.HistoryPage
}

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Gallery Gallery
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Gallery == nil {
		return fmt.Errorf("gallery is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the generation history.
type Service struct {
	gallery Gallery
	logger  log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		gallery: cfg.Gallery,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the history request parameters.
type Request struct {
	// Page is 1-based, 0 means the first one.
	Page int
}

// Run returns a history page, newest images first.
func (s *Service) Run(ctx context.Context, req Request) (*model.HistoryPage, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}

	if err := s.gallery.LoadPage(ctx, page); err != nil {
		return nil, err
	}

	p := s.gallery.Page()
	s.logger.Debugf("loaded history page %d/%d with %d images", p.Page, p.TotalPages(), len(p.Images))

	return &p, nil
}
