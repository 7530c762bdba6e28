package lib

import (
	"errors"
	"time"

	"github.com/slok/zimg/internal/gallery"
	"github.com/slok/zimg/internal/model"
)

// TaskStatus represents the lifecycle state of a generation task.
//
// The typical lifecycle is:
//
//	pending -> processing -> completed
//
// A task can also transition to failed at any point if the generation fails.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is queued on the service.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusProcessing indicates the image is being generated.
	TaskStatusProcessing TaskStatus = "processing"
	// TaskStatusCompleted indicates the image is ready.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the generation failed, see [Task].Error.
	TaskStatusFailed TaskStatus = "failed"
)

// IsTerminal returns true when the task will not change anymore.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// AspectRatio is the generated image shape.
type AspectRatio string

const (
	AspectRatioSquare    AspectRatio = "1:1"  // 1024x1024.
	AspectRatioLandscape AspectRatio = "4:3"  // 1024x768.
	AspectRatioPortrait  AspectRatio = "3:4"  // 768x1024.
	AspectRatioWide      AspectRatio = "16:9" // 1024x576.
	AspectRatioTall      AspectRatio = "9:16" // 576x1024.
)

// Quality is the generation quality preset, it sets the number of inference steps.
type Quality string

const (
	QualityFast     Quality = "fast"     // 4 steps.
	QualityBalanced Quality = "balanced" // 6 steps.
	QualityHigh     Quality = "high"     // 8 steps.
)

// GenerateOpts contains the options for generating an image.
type GenerateOpts struct {
	// Prompt describes the image, required.
	Prompt string
	// NegativePrompt describes what the image must not contain.
	NegativePrompt string
	// AspectRatio defaults to [AspectRatioSquare].
	AspectRatio AspectRatio
	// Quality defaults to [QualityHigh].
	Quality Quality
	// Seed makes the generation reproducible. Nil for a random seed.
	Seed *int64
	// Advanced are the service tuning options. Nil for the service defaults.
	Advanced *AdvancedOpts
	// OnProgress is called with every task status update while waiting.
	OnProgress func(Task)
}

// AdvancedOpts are the service tuning options of a generation.
type AdvancedOpts struct {
	// UseGPU runs the generation on the GPU.
	UseGPU bool
	// BatchSize must be 1, 2, 4 or 8.
	BatchSize int
	// GPUID selects the GPU device.
	GPUID int
	// GuidanceScale must be between 0 and 20 in steps of 0.5.
	GuidanceScale float64
	// MaxConcurrentTasks must be 1, 2 or 4.
	MaxConcurrentTasks int
}

// DefaultAdvancedOpts returns the advanced options the service uses when none are set.
func DefaultAdvancedOpts() AdvancedOpts {
	return fromInternalAdvanced(model.DefaultAdvancedOptions())
}

// Task represents a generation task returned by the SDK.
//
// This is a read-only snapshot of the task state at the time of the API call.
// Use [Client.GetTask] to get the latest state.
type Task struct {
	// ID is the task identifier assigned by the service.
	ID string
	// Status is the current lifecycle state.
	Status TaskStatus
	// Progress is the completion percentage (0-100).
	Progress int
	// CurrentStep and TotalSteps are the inference steps progress.
	CurrentStep int
	TotalSteps  int
	// Message is the human readable status message.
	Message string
	// Error is set when the task failed.
	Error string
	// Image is the generated image. Only set when completed.
	Image *Image
}

// Image is a generated image of the history.
type Image struct {
	ID             string
	Filename       string
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	UseGPU         bool
	// Seed is nil when the service doesn't report it.
	Seed *int64
	// SizeBytes is the image file size, 0 when unknown.
	SizeBytes int64
	// GenerationTime is 0 when unknown.
	GenerationTime time.Duration
	CreatedAt      time.Time
}

// HistoryPage is a page of the generated images history, newest first.
type HistoryPage struct {
	Images []Image
	// Total is the number of images of the whole history.
	Total int
	// Page is the 1-based page number.
	Page       int
	PageSize   int
	TotalPages int
}

// SystemStatus is the image service host utilization.
type SystemStatus struct {
	CPU    CPUStatus
	Memory MemoryStatus
	// GPU is nil when the host has no usable GPU.
	GPU *GPUStatus
	// Disk is nil when the service doesn't report it.
	Disk      *DiskStatus
	UpdatedAt time.Time
}

// CPUStatus is the host CPU utilization.
type CPUStatus struct {
	Cores        int
	FrequencyMHz float64
	UsagePercent float64
}

// MemoryStatus is the host memory utilization.
type MemoryStatus struct {
	UsedGB       float64
	TotalGB      float64
	AvailableGB  float64
	UsagePercent float64
}

// GPUStatus is the host GPU utilization.
type GPUStatus struct {
	Name          string
	UsagePercent  float64
	MemoryUsedGB  float64
	MemoryTotalGB float64
	TemperatureC  float64
}

// DiskStatus is the utilization of the disk that stores the images.
type DiskStatus struct {
	Path         string
	TotalGB      float64
	UsedGB       float64
	FreeGB       float64
	UsagePercent float64
}

// BatchResult is the outcome of a batch download or deletion.
type BatchResult struct {
	// Succeeded are the processed image IDs.
	Succeeded []string
	// Failed are the images that could not be processed.
	Failed []BatchFailure
	// Skipped are the requested images that are not on the history page.
	Skipped []string
	// Aborted are the images not tried after a download failure.
	Aborted []string
	// Saved are the downloaded images local files.
	Saved []SavedImage

	err error
}

// BatchFailure is an image that could not be processed.
type BatchFailure struct {
	ID  string
	Err error
}

// Err returns an error with every failure, nil if nothing failed.
func (b BatchResult) Err() error { return b.err }

// CleanupResult is the outcome of a history cleanup.
type CleanupResult struct {
	Message   string
	Deleted   int
	Remaining int
}

// SavedImage is an image downloaded to the local filesystem.
type SavedImage struct {
	// ID is the local ledger identifier (ULID).
	ID string
	// ImageID is the history image ID.
	ImageID   string
	Filename  string
	Path      string
	Prompt    string
	SizeBytes int64
	SavedAt   time.Time
}

// --- Conversion helpers ---

func toInternalGenerationOptions(opts GenerateOpts) model.GenerationOptions {
	o := model.GenerationOptions{
		Prompt:         opts.Prompt,
		NegativePrompt: opts.NegativePrompt,
		AspectRatio:    model.AspectRatio(opts.AspectRatio),
		Quality:        model.Quality(opts.Quality),
		Seed:           opts.Seed,
	}
	if opts.Advanced != nil {
		o.Advanced = &model.AdvancedOptions{
			UseGPU:             opts.Advanced.UseGPU,
			BatchSize:          opts.Advanced.BatchSize,
			GPUID:              opts.Advanced.GPUID,
			GuidanceScale:      opts.Advanced.GuidanceScale,
			MaxConcurrentTasks: opts.Advanced.MaxConcurrentTasks,
		}
	}
	return o
}

func fromInternalAdvanced(a model.AdvancedOptions) AdvancedOpts {
	return AdvancedOpts{
		UseGPU:             a.UseGPU,
		BatchSize:          a.BatchSize,
		GPUID:              a.GPUID,
		GuidanceScale:      a.GuidanceScale,
		MaxConcurrentTasks: a.MaxConcurrentTasks,
	}
}

func fromInternalTask(t model.Task) Task {
	task := Task{
		ID:          t.ID,
		Status:      TaskStatus(t.Status),
		Progress:    t.Progress,
		CurrentStep: t.CurrentStep,
		TotalSteps:  t.TotalSteps,
		Message:     t.Message,
		Error:       t.Error,
	}
	if t.Result != nil {
		img := fromInternalImage(*t.Result)
		task.Image = &img
	}
	return task
}

func fromInternalImage(r model.ImageRecord) Image {
	img := Image{
		ID:             r.ID,
		Filename:       r.Filename,
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Width:          r.Width,
		Height:         r.Height,
		Steps:          r.NumInferenceSteps,
		UseGPU:         r.UseGPU,
		Seed:           r.Seed,
		SizeBytes:      r.SizeBytes,
		CreatedAt:      r.CreatedAt,
	}
	if r.GenerationTimeMS != nil {
		img.GenerationTime = time.Duration(*r.GenerationTimeMS * float64(time.Millisecond))
	}
	return img
}

func fromInternalHistoryPage(h model.HistoryPage) HistoryPage {
	images := make([]Image, len(h.Images))
	for i, r := range h.Images {
		images[i] = fromInternalImage(r)
	}
	return HistoryPage{
		Images:     images,
		Total:      h.Total,
		Page:       h.Page,
		PageSize:   h.PageSize,
		TotalPages: h.TotalPages(),
	}
}

func fromInternalSystemStatus(s model.SystemStatus) SystemStatus {
	status := SystemStatus{
		CPU: CPUStatus{
			Cores:        s.CPU.Cores,
			FrequencyMHz: s.CPU.FrequencyMHz,
			UsagePercent: s.CPU.UsagePercent,
		},
		Memory: MemoryStatus{
			UsedGB:       s.Memory.UsedGB,
			TotalGB:      s.Memory.TotalGB,
			AvailableGB:  s.Memory.AvailableGB,
			UsagePercent: s.Memory.UsagePercent,
		},
		UpdatedAt: s.Timestamp,
	}

	if s.GPU != nil && s.GPU.Available {
		status.GPU = &GPUStatus{
			Name:          s.GPU.Name,
			UsagePercent:  s.GPU.UsagePercent,
			MemoryUsedGB:  s.GPU.MemoryUsedGB,
			MemoryTotalGB: s.GPU.MemoryTotalGB,
			TemperatureC:  s.GPU.TemperatureC,
		}
	}

	if s.Disk != nil {
		status.Disk = &DiskStatus{
			Path:         s.Disk.Path,
			TotalGB:      s.Disk.TotalGB,
			UsedGB:       s.Disk.UsedGB,
			FreeGB:       s.Disk.FreeGB,
			UsagePercent: s.Disk.UsagePercent,
		}
	}

	return status
}

func fromInternalBatchResult(b gallery.BatchResult) BatchResult {
	res := BatchResult{
		Succeeded: nonNil(b.Succeeded),
		Skipped:   nonNil(b.Skipped),
		Aborted:   nonNil(b.Aborted),
		Failed:    make([]BatchFailure, 0, len(b.Failed)),
		Saved:     fromInternalSavedArtifacts(b.Saved),
		err:       mapError(b.Err()),
	}
	for _, f := range b.Failed {
		res.Failed = append(res.Failed, BatchFailure{ID: f.ID, Err: mapError(f.Err)})
	}
	return res
}

func fromInternalCleanupResult(r model.CleanupResult) CleanupResult {
	return CleanupResult{
		Message:   r.Message,
		Deleted:   r.DeletedCount,
		Remaining: r.RemainingCount,
	}
}

func fromInternalSavedArtifacts(as []model.SavedArtifact) []SavedImage {
	result := make([]SavedImage, len(as))
	for i, a := range as {
		result[i] = SavedImage{
			ID:        a.ID,
			ImageID:   a.ImageID,
			Filename:  a.Filename,
			Path:      a.Path,
			Prompt:    a.Prompt,
			SizeBytes: a.SizeBytes,
			SavedAt:   a.SavedAt,
		}
	}
	return result
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// --- Error mapping ---

// mapError maps internal errors to the public sentinel errors, the original
// message is kept.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var terr *model.TransportError
	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.As(err, &terr) && terr.NotFound():
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
