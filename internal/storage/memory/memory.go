package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	artifacts map[string]model.SavedArtifact
	mu        sync.RWMutex
	logger    log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		artifacts: make(map[string]model.SavedArtifact),
		logger:    cfg.Logger,
	}, nil
}

// CreateSavedArtifact records a downloaded image.
func (r *Repository) CreateSavedArtifact(ctx context.Context, a model.SavedArtifact) error {
	if a.ID == "" || a.ImageID == "" || a.Path == "" {
		return fmt.Errorf("id, image id and path are required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.artifacts[a.ID]; ok {
		return fmt.Errorf("saved artifact with id %s: %w", a.ID, model.ErrAlreadyExists)
	}

	r.artifacts[a.ID] = a
	r.logger.Debugf("Created saved artifact in memory: %s", a.ID)
	return nil
}

// GetSavedArtifact retrieves a saved artifact by ID.
func (r *Repository) GetSavedArtifact(ctx context.Context, id string) (*model.SavedArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("saved artifact %s: %w", id, model.ErrNotFound)
	}

	return &a, nil
}

// ListSavedArtifacts returns all the saved artifacts, newest first.
func (r *Repository) ListSavedArtifacts(ctx context.Context) ([]model.SavedArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	artifacts := make([]model.SavedArtifact, 0, len(r.artifacts))
	for _, a := range r.artifacts {
		artifacts = append(artifacts, a)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if !artifacts[i].SavedAt.Equal(artifacts[j].SavedAt) {
			return artifacts[i].SavedAt.After(artifacts[j].SavedAt)
		}
		return artifacts[i].ID > artifacts[j].ID
	})

	return artifacts, nil
}

// DeleteSavedArtifact deletes a saved artifact record.
func (r *Repository) DeleteSavedArtifact(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.artifacts[id]; !ok {
		return fmt.Errorf("saved artifact %s: %w", id, model.ErrNotFound)
	}

	delete(r.artifacts, id)
	r.logger.Debugf("Deleted saved artifact from memory: %s", id)
	return nil
}
