package lib

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/slok/zimg/internal/app/cleanup"
	"github.com/slok/zimg/internal/app/download"
	"github.com/slok/zimg/internal/app/history"
	"github.com/slok/zimg/internal/app/latest"
	"github.com/slok/zimg/internal/app/remove"
	"github.com/slok/zimg/internal/app/saved"
	imgdownload "github.com/slok/zimg/internal/download"
	"github.com/slok/zimg/internal/gallery"
)

// DownloadOpts contains the options for downloading images.
type DownloadOpts struct {
	// Page is the 1-based history page the images are on. Default: 1.
	Page int
	// PageSize is the history page size. Default: 8.
	PageSize int
	// All downloads every image of the page, the IDs must be empty.
	All bool
	// OutputDir overrides [Config].OutputDir.
	OutputDir string
	// Delay is the pause between consecutive downloads. Default: 100ms.
	Delay time.Duration
	// ProgressWriter receives the download progress bars. Nil for no output.
	ProgressWriter io.Writer
}

// DeleteOpts contains the options for deleting images.
type DeleteOpts struct {
	// Page is the 1-based history page the images are on. Default: 1.
	Page int
	// PageSize is the history page size. Default: 8.
	PageSize int
	// All deletes every image of the page, the IDs must be empty.
	All bool
}

// ListHistory returns a page (1-based) of the generated images, newest first.
// A zero pageSize uses the default page size.
func (c *Client) ListHistory(ctx context.Context, page, pageSize int) (*HistoryPage, error) {
	g, err := c.newGallery(pageSize, 0, nil)
	if err != nil {
		return nil, err
	}

	svc, err := history.NewService(history.ServiceConfig{
		Gallery: g,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	h, err := svc.Run(ctx, history.Request{Page: page})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalHistoryPage(*h)
	return &result, nil
}

// LatestImage returns the newest generated image. It returns [ErrNotFound] when
// no image has been generated yet.
func (c *Client) LatestImage(ctx context.Context) (*Image, error) {
	svc, err := latest.NewService(latest.ServiceConfig{
		Client: c.api,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	img, err := svc.Run(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	if img == nil {
		return nil, fmt.Errorf("no images generated yet: %w", ErrNotFound)
	}

	result := fromInternalImage(*img)
	return &result, nil
}

// DownloadImages downloads images of a history page to the local filesystem and
// records them in the local ledger. Pass nil opts for defaults.
//
// The downloads stop on the first failure, the rest of the images are reported
// as aborted. The returned error is only set when the batch could not start, the
// per image failures are on the [BatchResult].
func (c *Client) DownloadImages(ctx context.Context, ids []string, opts *DownloadOpts) (*BatchResult, error) {
	if opts == nil {
		opts = &DownloadOpts{}
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = c.outputDir
	}

	saver, err := imgdownload.NewFileSaver(imgdownload.FileSaverConfig{
		Client:       c.api,
		Repository:   c.repo,
		OutputDir:    outputDir,
		StatusWriter: opts.ProgressWriter,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create file saver: %w", err)
	}

	g, err := c.newGallery(opts.PageSize, opts.Delay, saver)
	if err != nil {
		return nil, err
	}

	svc, err := download.NewService(download.ServiceConfig{
		Gallery: g,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, download.Request{
		Page: opts.Page,
		IDs:  ids,
		All:  opts.All,
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalBatchResult(*res)
	return &result, nil
}

// DeleteImages deletes images of a history page from the service. Pass nil opts
// for defaults.
//
// Every image is tried even if some fail. The returned error is only set when
// the batch could not start, the per image failures are on the [BatchResult].
func (c *Client) DeleteImages(ctx context.Context, ids []string, opts *DeleteOpts) (*BatchResult, error) {
	if opts == nil {
		opts = &DeleteOpts{}
	}

	g, err := c.newGallery(opts.PageSize, 0, nil)
	if err != nil {
		return nil, err
	}

	svc, err := remove.NewService(remove.ServiceConfig{
		Gallery: g,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, remove.Request{
		Page: opts.Page,
		IDs:  ids,
		All:  opts.All,
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalBatchResult(*res)
	return &result, nil
}

// CleanupHistory asks the service to apply its history retention policy.
func (c *Client) CleanupHistory(ctx context.Context) (*CleanupResult, error) {
	svc, err := cleanup.NewService(cleanup.ServiceConfig{
		Client: c.api,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalCleanupResult(*res)
	return &result, nil
}

// ListSavedImages returns the images downloaded to the local filesystem, newest
// first.
func (c *Client) ListSavedImages(ctx context.Context) ([]SavedImage, error) {
	res, err := c.savedImages(ctx, false)
	if err != nil {
		return nil, err
	}
	return fromInternalSavedArtifacts(res.Saved), nil
}

// PruneSavedImages forgets the saved images whose file has been removed from the
// local filesystem and returns them.
func (c *Client) PruneSavedImages(ctx context.Context) ([]SavedImage, error) {
	res, err := c.savedImages(ctx, true)
	if err != nil {
		return nil, err
	}
	return fromInternalSavedArtifacts(res.Pruned), nil
}

func (c *Client) savedImages(ctx context.Context, prune bool) (*saved.Response, error) {
	svc, err := saved.NewService(saved.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, saved.Request{Prune: prune})
	if err != nil {
		return nil, mapError(err)
	}

	return res, nil
}

func (c *Client) newGallery(pageSize int, delay time.Duration, saver gallery.ArtifactSaver) (*gallery.Manager, error) {
	g, err := gallery.NewManager(gallery.ManagerConfig{
		Client:        c.api,
		Saver:         saver,
		PageSize:      pageSize,
		DownloadDelay: delay,
		Logger:        c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create gallery: %w", err)
	}
	return g, nil
}
