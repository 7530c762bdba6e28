// Package gallery manages a page of the generation history and a selection over it,
// with batch operations on the selected images.
package gallery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

const (
	// DefaultPageSize is the number of images per history page.
	DefaultPageSize = 8
	// DefaultDownloadDelay is the pause between two downloads of a batch.
	DefaultDownloadDelay = 100 * time.Millisecond
)

// ArtifactClient is the image service API used by the manager.
type ArtifactClient interface {
	ListHistory(ctx context.Context, page, pageSize int) (*model.HistoryPage, error)
	DeleteArtifact(ctx context.Context, imageID string) error
}

// ArtifactSaver stores an image locally.
type ArtifactSaver interface {
	Save(ctx context.Context, img model.ImageRecord) (*model.SavedArtifact, error)
}

// ManagerConfig is the configuration of the manager.
type ManagerConfig struct {
	Client ArtifactClient
	// Saver is required for downloads.
	Saver         ArtifactSaver
	PageSize      int
	DownloadDelay time.Duration
	Logger        log.Logger
}

func (c *ManagerConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}

	if c.DownloadDelay <= 0 {
		c.DownloadDelay = DefaultDownloadDelay
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "gallery.Manager"})

	return nil
}

// Manager holds the current history page and the image selection.
type Manager struct {
	client        ArtifactClient
	saver         ArtifactSaver
	pageSize      int
	downloadDelay time.Duration
	logger        log.Logger

	mu       sync.Mutex
	page     model.HistoryPage
	err      error
	selected []string
	selIndex map[string]struct{}
}

// NewManager returns a new gallery manager, its page is empty until loaded.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Manager{
		client:        cfg.Client,
		saver:         cfg.Saver,
		pageSize:      cfg.PageSize,
		downloadDelay: cfg.DownloadDelay,
		logger:        cfg.Logger,
		page:          model.HistoryPage{Page: 1, PageSize: cfg.PageSize},
		selIndex:      map[string]struct{}{},
	}, nil
}

// LoadPage loads a history page (1-based) replacing the current one. On failure the
// current page is kept and the error is recorded.
func (m *Manager) LoadPage(ctx context.Context, page int) error {
	if page < 1 {
		return fmt.Errorf("page must be 1 or greater: %w", model.ErrNotValid)
	}

	h, err := m.client.ListHistory(ctx, page, m.pageSize)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.err = fmt.Errorf("could not load history page %d: %w", page, err)
		m.logger.Warningf("History page %d load failed: %s", page, err)
		return m.err
	}

	m.page = *h
	if m.page.Page == 0 {
		m.page.Page = page
	}
	if m.page.PageSize == 0 {
		m.page.PageSize = m.pageSize
	}
	m.err = nil

	return nil
}

// Reload loads again the current page.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	page := m.page.Page
	m.mu.Unlock()

	return m.LoadPage(ctx, page)
}

// NextPage loads the next page, it's a no-op on the last page.
func (m *Manager) NextPage(ctx context.Context) error {
	m.mu.Lock()
	page, total := m.page.Page, m.page.TotalPages()
	m.mu.Unlock()

	if page >= total {
		return nil
	}
	return m.LoadPage(ctx, page+1)
}

// PrevPage loads the previous page, it's a no-op on the first page.
func (m *Manager) PrevPage(ctx context.Context) error {
	m.mu.Lock()
	page := m.page.Page
	m.mu.Unlock()

	if page <= 1 {
		return nil
	}
	return m.LoadPage(ctx, page-1)
}

// Page returns a copy of the current page.
func (m *Manager) Page() model.HistoryPage {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.page
	p.Images = append([]model.ImageRecord(nil), m.page.Images...)
	return p
}

// Err returns the error of the last page load, nil if it succeeded.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Selected returns the selected image IDs in selection order.
func (m *Manager) Selected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.selected...)
}

// IsSelected returns true if the image is selected.
func (m *Manager) IsSelected(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.selIndex[id]
	return ok
}

// ToggleSelect flips the selection of an image and returns if it's selected now.
func (m *Manager) ToggleSelect(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.selIndex[id]; ok {
		m.removeLocked(id)
		return false
	}

	m.addLocked(id)
	return true
}

// SelectAll selects every image of the current page, unless the selection already has
// as many images as the page, then it clears the selection.
func (m *Manager) SelectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.selected) == len(m.page.Images) {
		m.clearLocked()
		return
	}

	m.clearLocked()
	for _, img := range m.page.Images {
		m.addLocked(img.ID)
	}
}

// ClearSelection empties the selection.
func (m *Manager) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

func (m *Manager) addLocked(id string) {
	if _, ok := m.selIndex[id]; ok {
		return
	}
	m.selIndex[id] = struct{}{}
	m.selected = append(m.selected, id)
}

func (m *Manager) removeLocked(id string) {
	delete(m.selIndex, id)
	for i, s := range m.selected {
		if s == id {
			m.selected = append(m.selected[:i], m.selected[i+1:]...)
			return
		}
	}
}

func (m *Manager) clearLocked() {
	m.selected = nil
	m.selIndex = map[string]struct{}{}
}

// DeleteSelected deletes every selected image one by one, a failed deletion doesn't
// stop the rest. The selection is always cleared, callers reload the page afterwards.
func (m *Manager) DeleteSelected(ctx context.Context) BatchResult {
	m.mu.Lock()
	ids := append([]string{}, m.selected...)
	m.clearLocked()
	m.mu.Unlock()

	res := BatchResult{Policy: PolicyContinueOnFailure}
	for _, id := range ids {
		if err := m.client.DeleteArtifact(ctx, id); err != nil {
			m.logger.Warningf("Image %s delete failed: %s", id, err)
			res.Failed = append(res.Failed, BatchFailure{ID: id, Err: err})
			continue
		}
		m.logger.Debugf("Image %s deleted", id)
		res.Succeeded = append(res.Succeeded, id)
	}

	return res
}

// DownloadSelected saves the selected images of the current page one by one, pausing
// between saves. The first failure aborts the rest. Selected images that are not on
// the current page are skipped.
func (m *Manager) DownloadSelected(ctx context.Context) BatchResult {
	res := BatchResult{Policy: PolicyAbortOnFirstFailure}

	m.mu.Lock()
	var imgs []model.ImageRecord
	for _, id := range m.selected {
		img, ok := m.page.Find(id)
		if !ok {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		imgs = append(imgs, img)
	}
	m.mu.Unlock()

	if m.saver == nil && len(imgs) > 0 {
		res.Failed = append(res.Failed, BatchFailure{ID: imgs[0].ID, Err: fmt.Errorf("no artifact saver configured")})
		res.Aborted = idsOf(imgs[1:])
		return res
	}

	for i, img := range imgs {
		if i > 0 {
			if err := sleep(ctx, m.downloadDelay); err != nil {
				res.Failed = append(res.Failed, BatchFailure{ID: img.ID, Err: err})
				res.Aborted = idsOf(imgs[i+1:])
				return res
			}
		}

		saved, err := m.saver.Save(ctx, img)
		if err != nil {
			m.logger.Warningf("Image %s download failed, aborting batch: %s", img.ID, err)
			res.Failed = append(res.Failed, BatchFailure{ID: img.ID, Err: err})
			res.Aborted = idsOf(imgs[i+1:])
			return res
		}

		res.Succeeded = append(res.Succeeded, img.ID)
		if saved != nil {
			res.Saved = append(res.Saved, *saved)
		}
	}

	return res
}

func idsOf(imgs []model.ImageRecord) []string {
	var ids []string
	for _, img := range imgs {
		ids = append(ids, img.ID)
	}
	return ids
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
