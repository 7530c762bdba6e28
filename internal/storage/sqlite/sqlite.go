package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository, migrations are applied on creation.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db, Logger: cfg.Logger})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateSavedArtifact records a downloaded image.
func (r *Repository) CreateSavedArtifact(ctx context.Context, a model.SavedArtifact) error {
	if a.ID == "" || a.ImageID == "" || a.Path == "" {
		return fmt.Errorf("id, image id and path are required: %w", model.ErrNotValid)
	}

	query := `
		INSERT INTO saved_artifacts (id, image_id, filename, path, prompt, size_bytes, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.ImageID,
		a.Filename,
		a.Path,
		a.Prompt,
		a.SizeBytes,
		a.SavedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: saved_artifacts.") {
			return fmt.Errorf("saved artifact already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert saved artifact: %w", err)
	}

	r.logger.Debugf("Created saved artifact in repository: %s", a.ID)
	return nil
}

// GetSavedArtifact retrieves a saved artifact by ID.
func (r *Repository) GetSavedArtifact(ctx context.Context, id string) (*model.SavedArtifact, error) {
	query := `
		SELECT id, image_id, filename, path, prompt, size_bytes, saved_at
		FROM saved_artifacts
		WHERE id = ?
	`

	a, err := scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("saved artifact %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query saved artifact: %w", err)
	}

	return &a, nil
}

// ListSavedArtifacts returns all the saved artifacts, newest first.
func (r *Repository) ListSavedArtifacts(ctx context.Context) ([]model.SavedArtifact, error) {
	query := `
		SELECT id, image_id, filename, path, prompt, size_bytes, saved_at
		FROM saved_artifacts
		ORDER BY saved_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query saved artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []model.SavedArtifact
	for rows.Next() {
		a, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		artifacts = append(artifacts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return artifacts, nil
}

// DeleteSavedArtifact deletes a saved artifact record, the file is not touched.
func (r *Repository) DeleteSavedArtifact(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_artifacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete saved artifact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("saved artifact %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted saved artifact from repository: %s", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (model.SavedArtifact, error) {
	var a model.SavedArtifact
	var savedAt sql.NullInt64

	err := s.Scan(
		&a.ID,
		&a.ImageID,
		&a.Filename,
		&a.Path,
		&a.Prompt,
		&a.SizeBytes,
		&savedAt,
	)
	if err != nil {
		return model.SavedArtifact{}, err
	}

	if !savedAt.Valid {
		return model.SavedArtifact{}, fmt.Errorf("saved_at is required")
	}
	a.SavedAt = timeFromUnix(savedAt.Int64)

	return a, nil
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
