package download

import (
	"context"
	"fmt"

	"github.com/slok/zimg/internal/gallery"
	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

// Gallery is the history view the images are selected and downloaded from.
type Gallery interface {
	LoadPage(ctx context.Context, page int) error
	ClearSelection()
	SelectAll()
	IsSelected(id string) bool
	ToggleSelect(id string) bool
	DownloadSelected(ctx context.Context) gallery.BatchResult
}

// ServiceConfig is the configuration for the download service.
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

// Service downloads images from the generation history to the local filesystem.
type Service struct {
	gallery Gallery
	logger  log.Logger
}

// NewService creates a new download service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		gallery: cfg.Gallery,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the download request parameters.
type Request struct {
	// Page is the history page the images are on (1-based), 0 means the first one.
	Page int
	// IDs are the images to download, the ones not on the page are skipped.
	IDs []string
	// All downloads every image of the page.
	All bool
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

// Run downloads the requested images one by one, the first failure aborts the rest.
func (s *Service) Run(ctx context.Context, req Request) (*gallery.BatchResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	page := req.Page
	if page == 0 {
		page = 1
	}

	if err := s.gallery.LoadPage(ctx, page); err != nil {
		return nil, err
	}

	s.gallery.ClearSelection()
	if req.All {
		s.gallery.SelectAll()
	}
	for _, id := range req.IDs {
		if !s.gallery.IsSelected(id) {
			s.gallery.ToggleSelect(id)
		}
	}

	res := s.gallery.DownloadSelected(ctx)
	s.logger.Debugf("downloaded %d of %d images", len(res.Succeeded), res.Total())

	return &res, nil
}
