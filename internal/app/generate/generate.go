package generate

import (
	"context"
	"fmt"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/tracker"
)

// TaskTracker submits a generation and follows its task.
type TaskTracker interface {
	Submit(ctx context.Context, req model.GenerationRequest) (string, error)
	Wait(ctx context.Context) (*model.Task, error)
	Snapshot() (tracker.State, *model.Task)
}

// OptionsRepository loads generation options from a file.
type OptionsRepository interface {
	GetGenerationOptions(ctx context.Context, path string) (model.GenerationOptions, error)
}

// ServiceConfig is the configuration for the generate service.
type ServiceConfig struct {
	Tracker TaskTracker
	// OptionsRepository is optional, only required to load options from files.
	OptionsRepository OptionsRepository
	Logger            log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Tracker == nil {
		return fmt.Errorf("tracker is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service submits image generation requests.
type Service struct {
	tracker  TaskTracker
	optsRepo OptionsRepository
	logger   log.Logger
}

// NewService creates a new generate service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		tracker:  cfg.Tracker,
		optsRepo: cfg.OptionsRepository,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the generate request parameters.
type Request struct {
	// OptionsFile is an optional generation options file, the set Options fields
	// override the ones on the file.
	OptionsFile string
	Options     model.GenerationOptions
	// Wait blocks until the task reaches a terminal state.
	Wait bool
}

// Run submits the generation and returns its task, the final one when waiting.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	opts, err := s.options(ctx, req)
	if err != nil {
		return nil, err
	}

	genReq, err := model.NewGenerationRequest(opts)
	if err != nil {
		return nil, err
	}

	s.logger.Debugf("submitting generation: %dx%d, %d steps", genReq.Width, genReq.Height, genReq.NumInferenceSteps)

	taskID, err := s.tracker.Submit(ctx, genReq)
	if err != nil {
		return nil, err
	}

	if !req.Wait {
		_, task := s.tracker.Snapshot()
		if task == nil {
			return &model.Task{ID: taskID, Status: model.TaskStatusPending}, nil
		}
		return task, nil
	}

	task, err := s.tracker.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not wait for task %s: %w", taskID, err)
	}

	return task, nil
}

func (s *Service) options(ctx context.Context, req Request) (model.GenerationOptions, error) {
	if req.OptionsFile == "" {
		return req.Options, nil
	}

	if s.optsRepo == nil {
		return model.GenerationOptions{}, fmt.Errorf("options files are not supported: %w", model.ErrNotValid)
	}

	opts, err := s.optsRepo.GetGenerationOptions(ctx, req.OptionsFile)
	if err != nil {
		return model.GenerationOptions{}, fmt.Errorf("could not load generation options: %w", err)
	}

	o := req.Options
	if o.Prompt != "" {
		opts.Prompt = o.Prompt
	}
	if o.NegativePrompt != "" {
		opts.NegativePrompt = o.NegativePrompt
	}
	if o.AspectRatio != "" {
		opts.AspectRatio = o.AspectRatio
	}
	if o.Quality != "" {
		opts.Quality = o.Quality
	}
	if o.Seed != nil {
		opts.Seed = o.Seed
	}
	if o.Advanced != nil {
		opts.Advanced = o.Advanced
	}

	return opts, nil
}
