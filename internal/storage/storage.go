package storage

import (
	"context"

	"github.com/slok/zimg/internal/model"
)

// Repository is the interface for the local ledger of downloaded images.
type Repository interface {
	CreateSavedArtifact(ctx context.Context, a model.SavedArtifact) error
	GetSavedArtifact(ctx context.Context, id string) (*model.SavedArtifact, error)
	ListSavedArtifacts(ctx context.Context) ([]model.SavedArtifact, error)
	DeleteSavedArtifact(ctx context.Context, id string) error
}
