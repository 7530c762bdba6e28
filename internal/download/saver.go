// Package download saves generated images on the local filesystem and keeps a ledger of
// the saved files.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/storage"
)

// ArtifactDownloader returns the raw bytes of an image.
type ArtifactDownloader interface {
	DownloadArtifact(ctx context.Context, imageID string) (io.ReadCloser, error)
}

// FileSaverConfig is the configuration of the file saver.
type FileSaverConfig struct {
	Client ArtifactDownloader
	// Repository is the saved files ledger, optional.
	Repository storage.Repository
	// OutputDir is where the images are written.
	OutputDir string
	// StatusWriter receives progress output, optional.
	StatusWriter io.Writer
	// IDGenerator returns the ledger entry IDs.
	IDGenerator func() string
	// TimeNow returns the current time.
	TimeNow func() time.Time
	Logger  log.Logger
}

func (c *FileSaverConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output dir is required")
	}

	if c.IDGenerator == nil {
		c.IDGenerator = func() string { return ulid.Make().String() }
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "download.FileSaver"})

	return nil
}

// FileSaver downloads images into a directory, each one under its service filename.
type FileSaver struct {
	client       ArtifactDownloader
	repo         storage.Repository
	outputDir    string
	statusWriter io.Writer
	idGen        func() string
	timeNow      func() time.Time
	logger       log.Logger
}

// NewFileSaver returns a new file saver.
func NewFileSaver(cfg FileSaverConfig) (*FileSaver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &FileSaver{
		client:       cfg.Client,
		repo:         cfg.Repository,
		outputDir:    cfg.OutputDir,
		statusWriter: cfg.StatusWriter,
		idGen:        cfg.IDGenerator,
		timeNow:      cfg.TimeNow,
		logger:       cfg.Logger,
	}, nil
}

// Save downloads the image and writes it atomically under the output directory. An
// existing file with the same name is replaced.
func (s *FileSaver) Save(ctx context.Context, img model.ImageRecord) (*model.SavedArtifact, error) {
	if img.ID == "" {
		return nil, fmt.Errorf("image id is required: %w", model.ErrNotValid)
	}

	filename := localFilename(img)
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	dstPath, err := filepath.Abs(filepath.Join(s.outputDir, filename))
	if err != nil {
		return nil, fmt.Errorf("could not resolve output path: %w", err)
	}

	rc, err := s.client.DownloadArtifact(ctx, img.ID)
	if err != nil {
		return nil, fmt.Errorf("could not download image %s: %w", img.ID, err)
	}
	defer rc.Close()

	written, err := s.writeFile(rc, dstPath, filename, img.SizeBytes)
	if err != nil {
		return nil, err
	}

	saved := model.SavedArtifact{
		ID:        s.idGen(),
		ImageID:   img.ID,
		Filename:  filename,
		Path:      dstPath,
		Prompt:    img.Prompt,
		SizeBytes: written,
		SavedAt:   s.timeNow().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.CreateSavedArtifact(ctx, saved); err != nil {
			return nil, fmt.Errorf("image saved at %s but could not be recorded: %w", dstPath, err)
		}
	}

	s.logger.Infof("Image %s saved at %s", img.ID, dstPath)
	return &saved, nil
}

func (s *FileSaver) writeFile(r io.Reader, dstPath, label string, total int64) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".zimg-download-*")
	if err != nil {
		return 0, fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // No-op after the rename.

	var dst io.Writer = tmp
	if s.statusWriter != nil {
		pw := NewProgressWriter(tmp, s.statusWriter, label, total)
		defer pw.Finish()
		dst = pw
	}

	written, err := io.Copy(dst, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing file %s: %w", dstPath, err)
	}

	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing file %s: %w", dstPath, err)
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		return 0, fmt.Errorf("moving file to %s: %w", dstPath, err)
	}

	return written, nil
}

// localFilename returns the service filename without any directory component.
func localFilename(img model.ImageRecord) string {
	name := filepath.Base(strings.ReplaceAll(img.Filename, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return img.ID + ".png"
	}
	return name
}
