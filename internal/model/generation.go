package model

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// AspectRatio is one of the closed set of supported aspect ratio presets.
type AspectRatio string

const (
	AspectRatioSquare    AspectRatio = "1:1"
	AspectRatioLandscape AspectRatio = "4:3"
	AspectRatioPortrait  AspectRatio = "3:4"
	AspectRatioWide      AspectRatio = "16:9"
	AspectRatioTall      AspectRatio = "9:16"
)

// Dimensions are the image size in pixels.
type Dimensions struct {
	Width  int
	Height int
}

var aspectRatioDimensions = map[AspectRatio]Dimensions{
	AspectRatioSquare:    {Width: 1024, Height: 1024},
	AspectRatioLandscape: {Width: 1024, Height: 768},
	AspectRatioPortrait:  {Width: 768, Height: 1024},
	AspectRatioWide:      {Width: 1024, Height: 576},
	AspectRatioTall:      {Width: 576, Height: 1024},
}

// AspectRatios returns the supported aspect ratio presets.
func AspectRatios() []AspectRatio {
	return []AspectRatio{AspectRatioSquare, AspectRatioLandscape, AspectRatioPortrait, AspectRatioWide, AspectRatioTall}
}

// Dimensions returns the pixel size for the aspect ratio.
func (a AspectRatio) Dimensions() (Dimensions, error) {
	d, ok := aspectRatioDimensions[a]
	if !ok {
		return Dimensions{}, fmt.Errorf("unknown aspect ratio %q: %w", a, ErrNotValid)
	}
	return d, nil
}

// Quality is one of the closed set of quality presets, each maps to a number of
// inference steps.
type Quality string

const (
	QualityFast     Quality = "fast"
	QualityBalanced Quality = "balanced"
	QualityHigh     Quality = "high"
)

var qualitySteps = map[Quality]int{
	QualityFast:     4,
	QualityBalanced: 6,
	QualityHigh:     8,
}

// Qualities returns the supported quality presets.
func Qualities() []Quality {
	return []Quality{QualityFast, QualityBalanced, QualityHigh}
}

// Steps returns the number of inference steps for the quality preset.
func (q Quality) Steps() (int, error) {
	s, ok := qualitySteps[q]
	if !ok {
		return 0, fmt.Errorf("unknown quality %q: %w", q, ErrNotValid)
	}
	return s, nil
}

const (
	// DefaultAspectRatio is used when no aspect ratio is set.
	DefaultAspectRatio = AspectRatioSquare
	// DefaultQuality is used when no quality is set.
	DefaultQuality = QualityHigh

	// MaxGuidanceScale is the upper bound of the guidance scale.
	MaxGuidanceScale = 20.0
	// GuidanceScaleStep is the granularity of the guidance scale.
	GuidanceScaleStep = 0.5
)

var (
	validBatchSizes         = []int{1, 2, 4, 8}
	validMaxConcurrentTasks = []int{1, 2, 4}
)

// AdvancedOptions are the optional expert generation settings.
type AdvancedOptions struct {
	UseGPU             bool
	BatchSize          int
	GPUID              int
	GuidanceScale      float64
	MaxConcurrentTasks int
}

// Validate validates the advanced options.
func (a AdvancedOptions) Validate() error {
	if !slices.Contains(validBatchSizes, a.BatchSize) {
		return fmt.Errorf("batch size must be one of %v: %w", validBatchSizes, ErrNotValid)
	}
	if a.GPUID < 0 {
		return fmt.Errorf("gpu id must be non-negative: %w", ErrNotValid)
	}
	if a.GuidanceScale < 0 || a.GuidanceScale > MaxGuidanceScale {
		return fmt.Errorf("guidance scale must be between 0 and %.1f: %w", MaxGuidanceScale, ErrNotValid)
	}
	if math.Mod(a.GuidanceScale, GuidanceScaleStep) != 0 {
		return fmt.Errorf("guidance scale must be a multiple of %.1f: %w", GuidanceScaleStep, ErrNotValid)
	}
	if !slices.Contains(validMaxConcurrentTasks, a.MaxConcurrentTasks) {
		return fmt.Errorf("max concurrent tasks must be one of %v: %w", validMaxConcurrentTasks, ErrNotValid)
	}
	return nil
}

// DefaultAdvancedOptions returns the advanced options the backend uses when none are sent.
func DefaultAdvancedOptions() AdvancedOptions {
	return AdvancedOptions{
		UseGPU:             true,
		BatchSize:          1,
		GPUID:              0,
		GuidanceScale:      0,
		MaxConcurrentTasks: 1,
	}
}

// GenerationOptions are the user facing choices a generation request is built from.
type GenerationOptions struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    AspectRatio
	Quality        Quality
	// Seed is optional, nil lets the backend choose a random one.
	Seed     *int64
	Advanced *AdvancedOptions
}

// GenerationRequest is an immutable image generation request, it's consumed once when
// a task is submitted.
type GenerationRequest struct {
	Prompt            string
	NegativePrompt    string
	Width             int
	Height            int
	NumInferenceSteps int
	Seed              *int64
	Advanced          *AdvancedOptions
}

// NewGenerationRequest derives a validated generation request from the user options.
func NewGenerationRequest(opts GenerationOptions) (GenerationRequest, error) {
	if opts.AspectRatio == "" {
		opts.AspectRatio = DefaultAspectRatio
	}
	if opts.Quality == "" {
		opts.Quality = DefaultQuality
	}

	dims, err := opts.AspectRatio.Dimensions()
	if err != nil {
		return GenerationRequest{}, err
	}

	steps, err := opts.Quality.Steps()
	if err != nil {
		return GenerationRequest{}, err
	}

	var seed *int64
	if opts.Seed != nil {
		s := *opts.Seed
		seed = &s
	}

	var adv *AdvancedOptions
	if opts.Advanced != nil {
		a := *opts.Advanced
		adv = &a
	}

	req := GenerationRequest{
		Prompt:            strings.TrimSpace(opts.Prompt),
		NegativePrompt:    strings.TrimSpace(opts.NegativePrompt),
		Width:             dims.Width,
		Height:            dims.Height,
		NumInferenceSteps: steps,
		Seed:              seed,
		Advanced:          adv,
	}
	if err := req.Validate(); err != nil {
		return GenerationRequest{}, err
	}

	return req, nil
}

// Validate validates the generation request.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt is required: %w", ErrNotValid)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("width and height must be positive: %w", ErrNotValid)
	}
	if r.NumInferenceSteps <= 0 {
		return fmt.Errorf("inference steps must be positive: %w", ErrNotValid)
	}
	if r.Advanced != nil {
		if err := r.Advanced.Validate(); err != nil {
			return err
		}
	}
	return nil
}
