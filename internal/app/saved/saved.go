package saved

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/storage"
)

// ServiceConfig is the configuration for the saved images service.
type ServiceConfig struct {
	Repository storage.Repository
	// FileExists reports if a saved file is still on disk, uses os.Stat by default.
	FileExists func(path string) (bool, error)
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.FileExists == nil {
		c.FileExists = fileExists
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the images saved locally.
type Service struct {
	repo       storage.Repository
	fileExists func(path string) (bool, error)
	logger     log.Logger
}

// NewService creates a new saved images service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:       cfg.Repository,
		fileExists: cfg.FileExists,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the saved images request parameters.
type Request struct {
	// Prune forgets the saved images whose file is not on disk anymore.
	Prune bool
}

// Response is the saved images listing.
type Response struct {
	Saved  []model.SavedArtifact
	Pruned []model.SavedArtifact
}

// Run lists the saved images, newest first.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	all, err := s.repo.ListSavedArtifacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list saved images: %w", err)
	}

	if !req.Prune {
		return &Response{Saved: all}, nil
	}

	res := &Response{}
	for _, a := range all {
		exists, err := s.fileExists(a.Path)
		if err != nil {
			return nil, fmt.Errorf("could not check saved image %s file: %w", a.ID, err)
		}
		if exists {
			res.Saved = append(res.Saved, a)
			continue
		}

		err = s.repo.DeleteSavedArtifact(ctx, a.ID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("could not forget saved image %s: %w", a.ID, err)
		}
		s.logger.Infof("Saved image %s file %s is missing, forgotten", a.ID, a.Path)
		res.Pruned = append(res.Pruned, a)
	}

	return res, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
