package fake

import (
	"time"

	"github.com/slok/zimg/internal/model"
)

type generateRequest struct {
	Prompt             string   `json:"prompt"`
	NegativePrompt     *string  `json:"negative_prompt"`
	Height             int      `json:"height"`
	Width              int      `json:"width"`
	NumInferenceSteps  int      `json:"num_inference_steps"`
	Seed               *int64   `json:"seed"`
	UseGPU             *bool    `json:"use_gpu"`
	BatchSize          *int     `json:"batch_size"`
	GPUID              *int     `json:"gpu_id"`
	GuidanceScale      *float64 `json:"guidance_scale"`
	MaxConcurrentTasks *int     `json:"max_concurrent_tasks"`
}

// validate applies the service request bounds, it returns the failing field.
func (g generateRequest) validate() (field, msg string, ok bool) {
	switch {
	case len(g.Prompt) == 0 || len(g.Prompt) > 1000:
		return "prompt", "String should have at least 1 and at most 1000 characters", false
	case g.Height < 256 || g.Height > 2048:
		return "height", "Input should be between 256 and 2048", false
	case g.Width < 256 || g.Width > 2048:
		return "width", "Input should be between 256 and 2048", false
	case g.NumInferenceSteps < 1 || g.NumInferenceSteps > 50:
		return "num_inference_steps", "Input should be between 1 and 50", false
	case g.BatchSize != nil && (*g.BatchSize < 1 || *g.BatchSize > 8):
		return "batch_size", "Input should be between 1 and 8", false
	case g.GPUID != nil && (*g.GPUID < 0 || *g.GPUID > 7):
		return "gpu_id", "Input should be between 0 and 7", false
	case g.GuidanceScale != nil && (*g.GuidanceScale < 0 || *g.GuidanceScale > 20):
		return "guidance_scale", "Input should be between 0 and 20", false
	case g.MaxConcurrentTasks != nil && (*g.MaxConcurrentTasks < 1 || *g.MaxConcurrentTasks > 4):
		return "max_concurrent_tasks", "Input should be between 1 and 4", false
	}
	return "", "", true
}

type validationErrorJSON struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type taskJSON struct {
	TaskID      string     `json:"task_id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	TotalSteps  int        `json:"total_steps"`
	CurrentStep int        `json:"current_step"`
	Message     string     `json:"message"`
	Result      *imageJSON `json:"result"`
	Error       *string    `json:"error"`
}

func newTaskJSON(t model.Task) taskJSON {
	j := taskJSON{
		TaskID:      t.ID,
		Status:      string(t.Status),
		Progress:    t.Progress,
		TotalSteps:  t.TotalSteps,
		CurrentStep: t.CurrentStep,
		Message:     t.Message,
	}
	if t.Error != "" {
		e := t.Error
		j.Error = &e
	}
	if t.Result != nil {
		r := newImageJSON(*t.Result)
		j.Result = &r
	}
	return j
}

type imageJSON struct {
	ID                string   `json:"id"`
	Filename          string   `json:"filename"`
	Prompt            string   `json:"prompt"`
	NegativePrompt    *string  `json:"negative_prompt"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	NumInferenceSteps int      `json:"num_inference_steps"`
	UseGPU            bool     `json:"use_gpu"`
	Seed              *int64   `json:"seed"`
	SizeBytes         int64    `json:"size_bytes"`
	CreatedAt         string   `json:"created_at"`
	GenerationTimeMS  *float64 `json:"generation_time_ms"`
	DownloadURL       string   `json:"download_url,omitempty"`
}

func newImageJSON(r model.ImageRecord) imageJSON {
	j := imageJSON{
		ID:                r.ID,
		Filename:          r.Filename,
		Prompt:            r.Prompt,
		Width:             r.Width,
		Height:            r.Height,
		NumInferenceSteps: r.NumInferenceSteps,
		UseGPU:            r.UseGPU,
		Seed:              r.Seed,
		SizeBytes:         r.SizeBytes,
		CreatedAt:         formatTime(r.CreatedAt),
		GenerationTimeMS:  r.GenerationTimeMS,
	}
	if r.NegativePrompt != "" {
		np := r.NegativePrompt
		j.NegativePrompt = &np
	}
	return j
}

type historyJSON struct {
	Images   []imageJSON `json:"images"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

type cleanupJSON struct {
	Message        string `json:"message"`
	DeletedCount   int    `json:"deleted_count"`
	RemainingCount int    `json:"remaining_count"`
}

type cpuJSON struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
	FrequencyMHz float64 `json:"frequency_mhz"`
}

type memoryJSON struct {
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	AvailableGB  float64 `json:"available_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

type gpuJSON struct {
	Available     bool     `json:"available"`
	Name          *string  `json:"name"`
	MemoryTotalGB *float64 `json:"memory_total_gb"`
	MemoryUsedGB  *float64 `json:"memory_used_gb"`
	UsagePercent  *float64 `json:"usage_percent"`
	Temperature   *float64 `json:"temperature"`
}

type diskJSON struct {
	Path         string  `json:"path"`
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	FreeGB       float64 `json:"free_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

type systemStatusJSON struct {
	CPU       cpuJSON    `json:"cpu"`
	Memory    memoryJSON `json:"memory"`
	GPU       gpuJSON    `json:"gpu"`
	Disk      *diskJSON  `json:"disk,omitempty"`
	Timestamp string     `json:"timestamp"`
}

func newSystemStatusJSON(s model.SystemStatus) systemStatusJSON {
	j := systemStatusJSON{
		CPU: cpuJSON{
			UsagePercent: s.CPU.UsagePercent,
			Cores:        s.CPU.Cores,
			FrequencyMHz: s.CPU.FrequencyMHz,
		},
		Memory: memoryJSON{
			TotalGB:      s.Memory.TotalGB,
			UsedGB:       s.Memory.UsedGB,
			AvailableGB:  s.Memory.AvailableGB,
			UsagePercent: s.Memory.UsagePercent,
		},
		Timestamp: formatTime(s.Timestamp),
	}

	// Unavailable GPUs only carry the flag.
	if g := s.GPU; g != nil && g.Available {
		j.GPU = gpuJSON{
			Available:     true,
			Name:          &g.Name,
			MemoryTotalGB: &g.MemoryTotalGB,
			MemoryUsedGB:  &g.MemoryUsedGB,
			UsagePercent:  &g.UsagePercent,
			Temperature:   &g.TemperatureC,
		}
	}

	if d := s.Disk; d != nil {
		j.Disk = &diskJSON{
			Path:         d.Path,
			TotalGB:      d.TotalGB,
			UsedGB:       d.UsedGB,
			FreeGB:       d.FreeGB,
			UsagePercent: d.UsagePercent,
		}
	}

	return j
}

func formatTime(t time.Time) string { return t.UTC().Format(wireTimeLayout) }
