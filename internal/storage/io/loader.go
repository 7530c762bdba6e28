package io

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/slok/zimg/internal/model"
)

// GenerationYAMLRepository loads generation requests from YAML files.
type GenerationYAMLRepository struct {
	fs fs.FS
}

// NewGenerationYAMLRepository creates a new YAML generation request repository.
func NewGenerationYAMLRepository(filesystem fs.FS) *GenerationYAMLRepository {
	return &GenerationYAMLRepository{fs: filesystem}
}

// GetGenerationOptions loads the generation options from a YAML file and returns a validated domain model.
func (r *GenerationYAMLRepository) GetGenerationOptions(ctx context.Context, path string) (model.GenerationOptions, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.GenerationOptions{}, fmt.Errorf("reading generation file: %w", err)
	}

	if ctx.Err() != nil {
		return model.GenerationOptions{}, ctx.Err()
	}

	var g GenerationFile
	if err := yaml.Unmarshal(data, &g); err != nil {
		return model.GenerationOptions{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := g.validate(); err != nil {
		return model.GenerationOptions{}, fmt.Errorf("invalid generation file: %w: %w", err, model.ErrNotValid)
	}

	return g.toModel(), nil
}

// GenerationFile represents the YAML structure of a generation request.
type GenerationFile struct {
	Prompt         string        `yaml:"prompt"`
	NegativePrompt string        `yaml:"negative_prompt"`
	AspectRatio    string        `yaml:"aspect_ratio"`
	Quality        string        `yaml:"quality"`
	Seed           *int64        `yaml:"seed,omitempty"`
	Advanced       *AdvancedFile `yaml:"advanced,omitempty"`
}

// AdvancedFile represents the YAML structure of the advanced options, missing fields
// take the service defaults.
type AdvancedFile struct {
	UseGPU             *bool    `yaml:"use_gpu,omitempty"`
	BatchSize          *int     `yaml:"batch_size,omitempty"`
	GPUID              *int     `yaml:"gpu_id,omitempty"`
	GuidanceScale      *float64 `yaml:"guidance_scale,omitempty"`
	MaxConcurrentTasks *int     `yaml:"max_concurrent_tasks,omitempty"`
}

func (g GenerationFile) validate() error {
	if strings.TrimSpace(g.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}

	if g.AspectRatio != "" && !slices.Contains(model.AspectRatios(), model.AspectRatio(g.AspectRatio)) {
		return fmt.Errorf("aspect_ratio must be one of %v, got: %q", model.AspectRatios(), g.AspectRatio)
	}

	if g.Quality != "" && !slices.Contains(model.Qualities(), model.Quality(g.Quality)) {
		return fmt.Errorf("quality must be one of %v, got: %q", model.Qualities(), g.Quality)
	}

	if g.Advanced != nil {
		if err := g.Advanced.toModel().Validate(); err != nil {
			return fmt.Errorf("advanced: %w", err)
		}
	}

	return nil
}

func (g GenerationFile) toModel() model.GenerationOptions {
	opts := model.GenerationOptions{
		Prompt:         g.Prompt,
		NegativePrompt: g.NegativePrompt,
		AspectRatio:    model.AspectRatio(g.AspectRatio),
		Quality:        model.Quality(g.Quality),
		Seed:           g.Seed,
	}

	if g.Advanced != nil {
		a := g.Advanced.toModel()
		opts.Advanced = &a
	}

	return opts
}

func (a AdvancedFile) toModel() model.AdvancedOptions {
	opts := model.DefaultAdvancedOptions()
	if a.UseGPU != nil {
		opts.UseGPU = *a.UseGPU
	}
	if a.BatchSize != nil {
		opts.BatchSize = *a.BatchSize
	}
	if a.GPUID != nil {
		opts.GPUID = *a.GPUID
	}
	if a.GuidanceScale != nil {
		opts.GuidanceScale = *a.GuidanceScale
	}
	if a.MaxConcurrentTasks != nil {
		opts.MaxConcurrentTasks = *a.MaxConcurrentTasks
	}
	return opts
}
