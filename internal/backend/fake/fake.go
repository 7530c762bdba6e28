// Package fake is an in-memory implementation of the image service HTTP API. Tasks
// advance one inference step on every status request, no real generation happens.
package fake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/metrics"
	"github.com/slok/zimg/internal/model"
)

const (
	// FailPromptMarker makes a task fail when the prompt contains it.
	FailPromptMarker = "[fail]"

	defaultMaxHistoryImages = 500
	defaultMaxHistoryAge    = 30 * 24 * time.Hour
	defaultHistoryPageSize  = 20
	placeholderSize         = 64

	// Timestamps are emitted without zone like the real service does.
	wireTimeLayout = "2006-01-02T15:04:05.000000"
)

// StatusProvider returns the host status served by the system status endpoint.
type StatusProvider interface {
	SystemStatus(ctx context.Context) (*model.SystemStatus, error)
}

// BackendConfig is the configuration of the fake backend.
type BackendConfig struct {
	// StatusProvider is optional, a static status is served when missing.
	StatusProvider StatusProvider
	// ImageData is the content of every generated image, a placeholder PNG by default.
	ImageData []byte
	// MaxHistoryImages is the number of images the cleanup keeps.
	MaxHistoryImages int
	// MaxHistoryAge is the age after which the cleanup deletes images.
	MaxHistoryAge time.Duration
	IDGenerator   func() string
	TimeNow       func() time.Time
	// MetricsRecorder is optional, nothing is recorded when missing.
	MetricsRecorder metrics.Recorder
	Logger          log.Logger
}

func (c *BackendConfig) defaults() error {
	if len(c.ImageData) == 0 {
		data, err := placeholderPNG(placeholderSize)
		if err != nil {
			return fmt.Errorf("could not create placeholder image: %w", err)
		}
		c.ImageData = data
	}

	if c.MaxHistoryImages <= 0 {
		c.MaxHistoryImages = defaultMaxHistoryImages
	}

	if c.MaxHistoryAge <= 0 {
		c.MaxHistoryAge = defaultMaxHistoryAge
	}

	if c.IDGenerator == nil {
		c.IDGenerator = func() string { return strings.ToLower(ulid.Make().String()) }
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "fake.Backend"})

	return nil
}

type task struct {
	model.Task
	req generateRequest
}

type storedImage struct {
	record model.ImageRecord
	data   []byte
}

// Backend is the fake image service, it's an http.Handler.
type Backend struct {
	statusProvider StatusProvider
	imageData      []byte
	maxImages      int
	maxAge         time.Duration
	idGen          func() string
	timeNow        func() time.Time
	metrics        metrics.Recorder
	logger         log.Logger
	mux            *http.ServeMux

	mu     sync.Mutex
	tasks  map[string]*task
	images []storedImage // Newest first.
}

// NewBackend returns a new fake backend.
func NewBackend(cfg BackendConfig) (*Backend, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	b := &Backend{
		statusProvider: cfg.StatusProvider,
		imageData:      cfg.ImageData,
		maxImages:      cfg.MaxHistoryImages,
		maxAge:         cfg.MaxHistoryAge,
		idGen:          cfg.IDGenerator,
		timeNow:        cfg.TimeNow,
		metrics:        cfg.MetricsRecorder,
		logger:         cfg.Logger,
		tasks:          map[string]*task{},
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/generate", b.measured("create_task", b.handleCreateTask))
	mux.Handle("GET /api/generate/{task_id}", b.measured("get_task", b.handleGetTask))
	mux.Handle("GET /api/history", b.measured("history", b.handleHistory))
	mux.Handle("POST /api/history/cleanup", b.measured("cleanup", b.handleCleanup))
	mux.Handle("GET /api/download/{image_id}", b.measured("download", b.handleDownload))
	mux.Handle("GET /api/images/latest", b.measured("latest", b.handleLatest))
	mux.Handle("DELETE /api/images/{image_id}", b.measured("delete", b.handleDelete))
	mux.Handle("GET /api/system/status", b.measured("system_status", b.handleSystemStatus))
	b.mux = mux

	return b, nil
}

// ServeHTTP satisfies http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.logger.Debugf("%s %s", r.Method, r.URL.Path)
	b.mux.ServeHTTP(w, r)
}

// measured records the latency and status code of every request served by h.
func (b *Backend) measured(handler string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := b.timeNow()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		b.metrics.ObserveHTTPRequest(r.Context(), handler, r.Method, sw.code, b.timeNow().Sub(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// AddImage stores an already generated image, it becomes the newest one.
func (b *Backend) AddImage(rec model.ImageRecord, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addImageLocked(rec, data)
	b.metrics.SetHistoryImages(context.Background(), len(b.images))
}

func (b *Backend) addImageLocked(rec model.ImageRecord, data []byte) {
	rec.SizeBytes = int64(len(data))
	b.images = append([]storedImage{{record: rec, data: data}}, b.images...)
	sort.SliceStable(b.images, func(i, j int) bool {
		return b.images[i].record.CreatedAt.After(b.images[j].record.CreatedAt)
	})
}

func (b *Backend) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "body", "Invalid JSON body")
		return
	}

	if field, msg, ok := req.validate(); !ok {
		writeValidationError(w, field, msg)
		return
	}

	id := b.idGen()
	t := &task{
		Task: model.Task{
			ID:         id,
			Status:     model.TaskStatusPending,
			TotalSteps: req.NumInferenceSteps,
			Message:    "Task created, waiting to start...",
		},
		req: req,
	}

	b.mu.Lock()
	b.tasks[id] = t
	b.mu.Unlock()

	b.logger.Infof("Task %s created", id)
	writeJSON(w, http.StatusOK, map[string]string{"task_id": id})
}

func (b *Backend) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")

	b.mu.Lock()
	t, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	b.advanceLocked(r.Context(), t)
	resp := newTaskJSON(t.Task)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// advanceLocked moves the task one step forward.
func (b *Backend) advanceLocked(ctx context.Context, t *task) {
	if t.Status.IsTerminal() {
		return
	}

	if strings.Contains(t.req.Prompt, FailPromptMarker) {
		t.Status = model.TaskStatusFailed
		t.Message = "Error: simulated generation failure"
		t.Error = "simulated generation failure"
		b.metrics.IncTaskFinished(ctx, string(t.Status))
		return
	}

	t.Status = model.TaskStatusProcessing
	t.CurrentStep++
	t.Progress = t.CurrentStep * 100 / t.TotalSteps
	t.Message = fmt.Sprintf("Generating... step %d/%d", t.CurrentStep, t.TotalSteps)

	if t.CurrentStep < t.TotalSteps {
		return
	}

	rec := model.ImageRecord{
		ID:                b.idGen(),
		Prompt:            t.req.Prompt,
		Width:             t.req.Width,
		Height:            t.req.Height,
		NumInferenceSteps: t.req.NumInferenceSteps,
		UseGPU:            t.req.UseGPU == nil || *t.req.UseGPU,
		Seed:              t.req.Seed,
		CreatedAt:         b.timeNow().UTC(),
	}
	if t.req.NegativePrompt != nil {
		rec.NegativePrompt = *t.req.NegativePrompt
	}
	rec.Filename = rec.ID + ".png"
	genTime := float64(t.TotalSteps) * 250
	rec.GenerationTimeMS = &genTime
	b.addImageLocked(rec, b.imageData)
	rec.SizeBytes = int64(len(b.imageData))

	t.Status = model.TaskStatusCompleted
	t.Progress = 100
	t.Message = "Image generation completed"
	t.Result = &rec
	b.metrics.IncTaskFinished(ctx, string(t.Status))
	b.metrics.SetHistoryImages(ctx, len(b.images))
	b.logger.Infof("Task %s completed, image %s", t.ID, rec.ID)
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		writeValidationError(w, "page", "Input should be a valid integer greater than 0")
		return
	}
	pageSize, err := queryInt(r, "page_size", defaultHistoryPageSize)
	if err != nil || pageSize < 1 {
		writeValidationError(w, "page_size", "Input should be a valid integer greater than 0")
		return
	}

	b.mu.Lock()
	total := len(b.images)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	images := make([]imageJSON, 0, end-start)
	for _, img := range b.images[start:end] {
		images = append(images, newImageJSON(img.record))
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, historyJSON{
		Images:   images,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (b *Backend) handleCleanup(w http.ResponseWriter, r *http.Request) {
	cutoff := b.timeNow().Add(-b.maxAge)

	b.mu.Lock()
	var kept []storedImage
	deleted := 0
	for _, img := range b.images {
		if len(kept) >= b.maxImages || img.record.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, img)
	}
	b.images = kept
	b.metrics.SetHistoryImages(r.Context(), len(kept))
	b.mu.Unlock()

	b.logger.Infof("History cleanup deleted %d images", deleted)
	writeJSON(w, http.StatusOK, cleanupJSON{
		Message:        "Cleanup completed",
		DeletedCount:   deleted,
		RemainingCount: len(kept),
	})
}

func (b *Backend) handleDownload(w http.ResponseWriter, r *http.Request) {
	img, ok := b.findImage(r.PathValue("image_id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Image not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.record.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(img.data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.data)
}

func (b *Backend) handleLatest(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	if len(b.images) == 0 {
		b.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "No images found")
		return
	}
	resp := newImageJSON(b.images[0].record)
	b.mu.Unlock()

	resp.DownloadURL = "/api/download/" + resp.ID
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("image_id")

	b.mu.Lock()
	idx := -1
	for i, img := range b.images {
		if img.record.ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		b.images = append(b.images[:idx], b.images[idx+1:]...)
		b.metrics.SetHistoryImages(r.Context(), len(b.images))
	}
	b.mu.Unlock()

	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Image not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Image deleted successfully", "image_id": id})
}

func (b *Backend) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := &model.SystemStatus{
		CPU:       model.CPUStatus{Cores: 8, FrequencyMHz: 3000, UsagePercent: 12.5},
		Memory:    model.MemoryStatus{UsedGB: 8, TotalGB: 32, AvailableGB: 24, UsagePercent: 25},
		GPU:       &model.GPUStatus{Available: false},
		Timestamp: b.timeNow().UTC(),
	}

	if b.statusProvider != nil {
		s, err := b.statusProvider.SystemStatus(r.Context())
		if err != nil {
			b.logger.Errorf("Could not get system status: %s", err)
			writeDetail(w, http.StatusInternalServerError, "Failed to get system status: "+err.Error())
			return
		}
		status = s
	}

	writeJSON(w, http.StatusOK, newSystemStatusJSON(*status))
}

func (b *Backend) findImage(id string) (storedImage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, img := range b.images {
		if img.record.ID == id {
			return img, true
		}
	}
	return storedImage{}, false
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidationError(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []validationErrorJSON{{Loc: []string{"body", field}, Msg: msg, Type: "value_error"}},
	})
}

// placeholderPNG returns a square gradient PNG.
func placeholderPNG(size int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / size), G: uint8(y * 255 / size), B: 160, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
