package remove

import (
	"context"
	"fmt"

	"github.com/slok/zimg/internal/gallery"
	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

// Gallery is the history view the images are selected and deleted from.
type Gallery interface {
	LoadPage(ctx context.Context, page int) error
	Reload(ctx context.Context) error
	ClearSelection()
	SelectAll()
	IsSelected(id string) bool
	ToggleSelect(id string) bool
	DeleteSelected(ctx context.Context) gallery.BatchResult
}

// ServiceConfig is the configuration for the remove service.
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

// Service deletes images from the generation history.
type Service struct {
	gallery Gallery
	logger  log.Logger
}

// NewService creates a new remove service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		gallery: cfg.Gallery,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the remove request parameters.
type Request struct {
	// IDs are the images to delete.
	IDs []string
	// All deletes every image of the Page.
	All bool
	// Page is the history page used by All (1-based), 0 means the first one.
	Page int
}

func (r Request) validate() error {
	if r.All && len(r.IDs) > 0 {
		return fmt.Errorf("image ids and all can't be used together: %w", model.ErrNotValid)
	}
	if !r.All && len(r.IDs) == 0 {
		return fmt.Errorf("at least one image id is required: %w", model.ErrNotValid)
	}
	return nil
}

// Run deletes the requested images one by one, a failed deletion doesn't stop the rest.
func (s *Service) Run(ctx context.Context, req Request) (*gallery.BatchResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	s.gallery.ClearSelection()
	if req.All {
		page := req.Page
		if page == 0 {
			page = 1
		}
		if err := s.gallery.LoadPage(ctx, page); err != nil {
			return nil, err
		}
		s.gallery.SelectAll()
	}
	for _, id := range req.IDs {
		if !s.gallery.IsSelected(id) {
			s.gallery.ToggleSelect(id)
		}
	}

	res := s.gallery.DeleteSelected(ctx)
	s.logger.Debugf("deleted %d of %d images", len(res.Succeeded), res.Total())

	// Reload failures are logged, the deletion already happened.
	if req.All && len(res.Succeeded) > 0 {
		if err := s.gallery.Reload(ctx); err != nil {
			s.logger.Warningf("Could not reload history after deleting images: %s", err)
		}
	}

	return &res, nil
}
