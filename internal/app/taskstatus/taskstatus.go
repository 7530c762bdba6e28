package taskstatus

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

// TaskGetter gets the current state of a task.
type TaskGetter interface {
	GetTaskStatus(ctx context.Context, taskID string) (*model.Task, error)
}

// TaskTracker follows a task until it ends.
type TaskTracker interface {
	Track(ctx context.Context, taskID string) error
	Wait(ctx context.Context) (*model.Task, error)
}

// ServiceConfig is the configuration for the task status service.
type ServiceConfig struct {
	Client TaskGetter
	// Tracker is optional, only required to wait for tasks.
	Tracker TaskTracker
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service gets the status of a generation task.
type Service struct {
	client  TaskGetter
	tracker TaskTracker
	logger  log.Logger
}

// NewService creates a new task status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client:  cfg.Client,
		tracker: cfg.Tracker,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the task status request parameters.
type Request struct {
	TaskID string
	// Wait tracks the task until it reaches a terminal state.
	Wait bool
}

// Run returns the task status.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	taskID := strings.TrimSpace(req.TaskID)
	if taskID == "" {
		return nil, fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	if !req.Wait {
		task, err := s.client.GetTaskStatus(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("could not get task %s: %w", taskID, err)
		}
		return task, nil
	}

	if s.tracker == nil {
		return nil, fmt.Errorf("waiting requires a tracker: %w", model.ErrNotValid)
	}

	s.logger.Debugf("waiting for task %s", taskID)

	if err := s.tracker.Track(ctx, taskID); err != nil {
		return nil, fmt.Errorf("could not track task %s: %w", taskID, err)
	}

	task, err := s.tracker.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not wait for task %s: %w", taskID, err)
	}

	return task, nil
}
