package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/slok/zimg/internal/model"
)

// --- JSON wire types (private, for the image service API) ---

type generateRequestJSON struct {
	Prompt             string   `json:"prompt"`
	NegativePrompt     *string  `json:"negative_prompt"`
	Height             int      `json:"height"`
	Width              int      `json:"width"`
	NumInferenceSteps  int      `json:"num_inference_steps"`
	Seed               *int64   `json:"seed"`
	UseGPU             *bool    `json:"use_gpu,omitempty"`
	BatchSize          *int     `json:"batch_size,omitempty"`
	GPUID              *int     `json:"gpu_id,omitempty"`
	GuidanceScale      *float64 `json:"guidance_scale,omitempty"`
	MaxConcurrentTasks *int     `json:"max_concurrent_tasks,omitempty"`
}

func newGenerateRequestJSON(r model.GenerationRequest) generateRequestJSON {
	j := generateRequestJSON{
		Prompt:            r.Prompt,
		Height:            r.Height,
		Width:             r.Width,
		NumInferenceSteps: r.NumInferenceSteps,
		Seed:              r.Seed,
	}
	if r.NegativePrompt != "" {
		np := r.NegativePrompt
		j.NegativePrompt = &np
	}
	if a := r.Advanced; a != nil {
		j.UseGPU = &a.UseGPU
		j.BatchSize = &a.BatchSize
		j.GPUID = &a.GPUID
		j.GuidanceScale = &a.GuidanceScale
		j.MaxConcurrentTasks = &a.MaxConcurrentTasks
	}
	return j
}

type createTaskResponseJSON struct {
	TaskID string `json:"task_id"`
}

type taskJSON struct {
	TaskID      string           `json:"task_id"`
	Status      string           `json:"status"`
	Progress    int              `json:"progress"`
	TotalSteps  int              `json:"total_steps"`
	CurrentStep int              `json:"current_step"`
	Message     string           `json:"message"`
	Result      *imageRecordJSON `json:"result"`
	Error       *string          `json:"error"`
}

func (t taskJSON) toModel() *model.Task {
	task := &model.Task{
		ID:          t.TaskID,
		Status:      model.TaskStatus(t.Status),
		Progress:    t.Progress,
		CurrentStep: t.CurrentStep,
		TotalSteps:  t.TotalSteps,
		Message:     t.Message,
	}
	if t.Error != nil {
		task.Error = *t.Error
	}
	if t.Result != nil {
		r := t.Result.toModel()
		task.Result = &r
	}
	return task
}

type imageRecordJSON struct {
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
	CreatedAt         wireTime `json:"created_at"`
	GenerationTimeMS  *float64 `json:"generation_time_ms"`
}

func (i imageRecordJSON) toModel() model.ImageRecord {
	r := model.ImageRecord{
		ID:                i.ID,
		Filename:          i.Filename,
		Prompt:            i.Prompt,
		Width:             i.Width,
		Height:            i.Height,
		NumInferenceSteps: i.NumInferenceSteps,
		UseGPU:            i.UseGPU,
		Seed:              i.Seed,
		SizeBytes:         i.SizeBytes,
		GenerationTimeMS:  i.GenerationTimeMS,
		CreatedAt:         i.CreatedAt.Time,
	}
	if i.NegativePrompt != nil {
		r.NegativePrompt = *i.NegativePrompt
	}
	return r
}

type historyJSON struct {
	Images   []imageRecordJSON `json:"images"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func (h historyJSON) toModel() *model.HistoryPage {
	images := make([]model.ImageRecord, 0, len(h.Images))
	for _, img := range h.Images {
		images = append(images, img.toModel())
	}
	return &model.HistoryPage{
		Images:   images,
		Total:    h.Total,
		Page:     h.Page,
		PageSize: h.PageSize,
	}
}

type cleanupJSON struct {
	Message        string `json:"message"`
	DeletedCount   int    `json:"deleted_count"`
	RemainingCount int    `json:"remaining_count"`
}

type systemStatusJSON struct {
	CPU struct {
		UsagePercent float64 `json:"usage_percent"`
		Cores        int     `json:"cores"`
		FrequencyMHz float64 `json:"frequency_mhz"`
	} `json:"cpu"`
	Memory struct {
		TotalGB      float64 `json:"total_gb"`
		UsedGB       float64 `json:"used_gb"`
		AvailableGB  float64 `json:"available_gb"`
		UsagePercent float64 `json:"usage_percent"`
	} `json:"memory"`
	GPU *struct {
		Available     bool     `json:"available"`
		Name          *string  `json:"name"`
		MemoryTotalGB *float64 `json:"memory_total_gb"`
		MemoryUsedGB  *float64 `json:"memory_used_gb"`
		UsagePercent  *float64 `json:"usage_percent"`
		Temperature   *float64 `json:"temperature"`
	} `json:"gpu"`
	Disk *struct {
		Path         string  `json:"path"`
		TotalGB      float64 `json:"total_gb"`
		UsedGB       float64 `json:"used_gb"`
		FreeGB       float64 `json:"free_gb"`
		UsagePercent float64 `json:"usage_percent"`
	} `json:"disk"`
	Timestamp wireTime `json:"timestamp"`
}

func (s systemStatusJSON) toModel() *model.SystemStatus {
	status := &model.SystemStatus{
		CPU: model.CPUStatus{
			Cores:        s.CPU.Cores,
			FrequencyMHz: s.CPU.FrequencyMHz,
			UsagePercent: s.CPU.UsagePercent,
		},
		Memory: model.MemoryStatus{
			UsedGB:       s.Memory.UsedGB,
			TotalGB:      s.Memory.TotalGB,
			AvailableGB:  s.Memory.AvailableGB,
			UsagePercent: s.Memory.UsagePercent,
		},
		Timestamp: s.Timestamp.Time,
	}

	if g := s.GPU; g != nil {
		status.GPU = &model.GPUStatus{
			Available:     g.Available,
			Name:          deref(g.Name),
			UsagePercent:  deref(g.UsagePercent),
			MemoryUsedGB:  deref(g.MemoryUsedGB),
			MemoryTotalGB: deref(g.MemoryTotalGB),
			TemperatureC:  deref(g.Temperature),
		}
	}

	if d := s.Disk; d != nil {
		status.Disk = &model.DiskStatus{
			Path:         d.Path,
			TotalGB:      d.TotalGB,
			UsedGB:       d.UsedGB,
			FreeGB:       d.FreeGB,
			UsagePercent: d.UsagePercent,
		}
	}

	return status
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

// errorJSON is the error body of the service. Detail is usually a string, but request
// validation errors carry a list of {loc, msg, type} objects.
type errorJSON struct {
	Detail json.RawMessage `json:"detail"`
}

func (e errorJSON) message() string {
	if len(e.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(e.Detail, &list); err == nil && len(list) > 0 {
		return list[0].Msg
	}

	return ""
}

// wireTime accepts RFC3339 and the zone-less timestamps the service emits, those are
// interpreted as UTC.
type wireTime struct {
	time.Time
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (w *wireTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		w.Time = time.Time{}
		return nil
	}

	for _, layout := range wireTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			w.Time = t
			return nil
		}
	}

	return fmt.Errorf("invalid timestamp %q", s)
}
