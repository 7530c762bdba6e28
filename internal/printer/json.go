package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/zimg/internal/gallery"
	"github.com/slok/zimg/internal/model"
)

// JSONPrinter prints image generation information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type taskOutput struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Progress    int          `json:"progress"`
	CurrentStep int          `json:"current_step"`
	TotalSteps  int          `json:"total_steps"`
	Message     string       `json:"message,omitempty"`
	Error       string       `json:"error,omitempty"`
	Result      *imageOutput `json:"result,omitempty"`
}

type imageOutput struct {
	ID                string    `json:"id"`
	Filename          string    `json:"filename"`
	Prompt            string    `json:"prompt"`
	NegativePrompt    string    `json:"negative_prompt,omitempty"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	NumInferenceSteps int       `json:"num_inference_steps"`
	UseGPU            bool      `json:"use_gpu"`
	Seed              *int64    `json:"seed"`
	SizeBytes         int64     `json:"size_bytes"`
	GenerationTimeMS  *float64  `json:"generation_time_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

type historyOutput struct {
	Images     []imageOutput `json:"images"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

type systemStatusOutput struct {
	CPU struct {
		Cores        int     `json:"cores"`
		FrequencyMHz float64 `json:"frequency_mhz"`
		UsagePercent float64 `json:"usage_percent"`
	} `json:"cpu"`
	Memory struct {
		UsedGB       float64 `json:"used_gb"`
		TotalGB      float64 `json:"total_gb"`
		AvailableGB  float64 `json:"available_gb"`
		UsagePercent float64 `json:"usage_percent"`
	} `json:"memory"`
	GPU       *gpuOutput  `json:"gpu"`
	Disk      *diskOutput `json:"disk,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type gpuOutput struct {
	Available     bool    `json:"available"`
	Name          string  `json:"name,omitempty"`
	UsagePercent  float64 `json:"usage_percent"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	TemperatureC  float64 `json:"temperature_c"`
}

type diskOutput struct {
	Path         string  `json:"path"`
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	FreeGB       float64 `json:"free_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

type batchOutput struct {
	Policy    string               `json:"policy"`
	Succeeded []string             `json:"succeeded"`
	Failed    []batchFailureOutput `json:"failed"`
	Skipped   []string             `json:"skipped"`
	Aborted   []string             `json:"aborted"`
	Saved     []savedOutput        `json:"saved,omitempty"`
}

type batchFailureOutput struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type savedOutput struct {
	ID        string    `json:"id"`
	ImageID   string    `json:"image_id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Prompt    string    `json:"prompt"`
	SizeBytes int64     `json:"size_bytes"`
	SavedAt   time.Time `json:"saved_at"`
}

type cleanupOutput struct {
	Message        string `json:"message"`
	DeletedCount   int    `json:"deleted_count"`
	RemainingCount int    `json:"remaining_count"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintTask prints the task state in JSON format.
func (j *JSONPrinter) PrintTask(task model.Task) error {
	out := taskOutput{
		ID:          task.ID,
		Status:      string(task.Status),
		Progress:    task.Progress,
		CurrentStep: task.CurrentStep,
		TotalSteps:  task.TotalSteps,
		Message:     task.Message,
		Error:       task.Error,
	}
	if task.Result != nil {
		img := mapImage(*task.Result)
		out.Result = &img
	}
	return j.encode(out)
}

// PrintSystemStatus prints the host utilization in JSON format.
func (j *JSONPrinter) PrintSystemStatus(status model.SystemStatus) error {
	var out systemStatusOutput
	out.CPU.Cores = status.CPU.Cores
	out.CPU.FrequencyMHz = status.CPU.FrequencyMHz
	out.CPU.UsagePercent = status.CPU.UsagePercent
	out.Memory.UsedGB = status.Memory.UsedGB
	out.Memory.TotalGB = status.Memory.TotalGB
	out.Memory.AvailableGB = status.Memory.AvailableGB
	out.Memory.UsagePercent = status.Memory.UsagePercent
	out.Timestamp = status.Timestamp

	if g := status.GPU; g != nil {
		out.GPU = &gpuOutput{
			Available:     g.Available,
			Name:          g.Name,
			UsagePercent:  g.UsagePercent,
			MemoryUsedGB:  g.MemoryUsedGB,
			MemoryTotalGB: g.MemoryTotalGB,
			TemperatureC:  g.TemperatureC,
		}
	}
	if d := status.Disk; d != nil {
		out.Disk = &diskOutput{
			Path:         d.Path,
			TotalGB:      d.TotalGB,
			UsedGB:       d.UsedGB,
			FreeGB:       d.FreeGB,
			UsagePercent: d.UsagePercent,
		}
	}

	return j.encode(out)
}

// PrintHistory prints a history page in JSON format.
func (j *JSONPrinter) PrintHistory(page model.HistoryPage) error {
	out := historyOutput{
		Images:     make([]imageOutput, 0, len(page.Images)),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages(),
	}
	for _, img := range page.Images {
		out.Images = append(out.Images, mapImage(img))
	}
	return j.encode(out)
}

// PrintImage prints the image metadata in JSON format.
func (j *JSONPrinter) PrintImage(img model.ImageRecord) error {
	return j.encode(mapImage(img))
}

// PrintBatchResult prints a batch operation outcome in JSON format.
func (j *JSONPrinter) PrintBatchResult(res gallery.BatchResult) error {
	out := batchOutput{
		Policy:    string(res.Policy),
		Succeeded: nonNil(res.Succeeded),
		Failed:    make([]batchFailureOutput, 0, len(res.Failed)),
		Skipped:   nonNil(res.Skipped),
		Aborted:   nonNil(res.Aborted),
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, batchFailureOutput{ID: f.ID, Error: f.Err.Error()})
	}
	for _, s := range res.Saved {
		out.Saved = append(out.Saved, mapSaved(s))
	}
	return j.encode(out)
}

// PrintSavedArtifacts prints the locally saved images in JSON format.
func (j *JSONPrinter) PrintSavedArtifacts(saved []model.SavedArtifact) error {
	out := make([]savedOutput, 0, len(saved))
	for _, s := range saved {
		out = append(out, mapSaved(s))
	}
	return j.encode(out)
}

// PrintCleanup prints the history cleanup result in JSON format.
func (j *JSONPrinter) PrintCleanup(res model.CleanupResult) error {
	return j.encode(cleanupOutput{
		Message:        res.Message,
		DeletedCount:   res.DeletedCount,
		RemainingCount: res.RemainingCount,
	})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func mapImage(img model.ImageRecord) imageOutput {
	return imageOutput{
		ID:                img.ID,
		Filename:          img.Filename,
		Prompt:            img.Prompt,
		NegativePrompt:    img.NegativePrompt,
		Width:             img.Width,
		Height:            img.Height,
		NumInferenceSteps: img.NumInferenceSteps,
		UseGPU:            img.UseGPU,
		Seed:              img.Seed,
		SizeBytes:         img.SizeBytes,
		GenerationTimeMS:  img.GenerationTimeMS,
		CreatedAt:         img.CreatedAt,
	}
}

func mapSaved(s model.SavedArtifact) savedOutput {
	return savedOutput{
		ID:        s.ID,
		ImageID:   s.ImageID,
		Filename:  s.Filename,
		Path:      s.Path,
		Prompt:    s.Prompt,
		SizeBytes: s.SizeBytes,
		SavedAt:   s.SavedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
