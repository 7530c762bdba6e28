package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/poll"
)

// DefaultInterval is the task status polling interval.
const DefaultInterval = 2 * time.Second

var (
	// ErrSuperseded is returned when waiting on a task that stopped being tracked because
	// another task replaced it.
	ErrSuperseded = errors.New("task tracking superseded")
	// ErrStopped is returned when the task polling ended before the task reached a
	// terminal state, by the tracker being closed or the polling context ending.
	ErrStopped = errors.New("task tracking stopped")
	// ErrIdle is returned when there is no tracked task.
	ErrIdle = errors.New("no task is being tracked")
)

// State is the tracker state.
type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// TaskClient is the image service API used by the tracker.
type TaskClient interface {
	SubmitTask(ctx context.Context, req model.GenerationRequest) (string, error)
	GetTaskStatus(ctx context.Context, taskID string) (*model.Task, error)
}

// TrackerConfig is the configuration of the tracker.
type TrackerConfig struct {
	Client TaskClient
	// Interval is the status polling interval.
	Interval time.Duration
	// OnUpdate is called with a copy of the task every time it changes. It's called
	// outside the tracker lock, so it can use the tracker, including Close, Submit
	// and Track.
	OnUpdate func(model.Task)
	Logger   log.Logger
}

func (c *TrackerConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}

	if c.OnUpdate == nil {
		c.OnUpdate = func(model.Task) {}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tracker.Tracker"})

	return nil
}

// session is the tracking of a single task.
type session struct {
	task       model.Task
	handle     *poll.Handle
	terminal   bool
	superseded bool
	done       chan struct{}
}

func (s *session) finishLocked() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Tracker tracks the lifecycle of a single generation task at a time. Submitting or
// tracking a new task replaces the previous one, its polling is cancelled before the
// new one starts.
type Tracker struct {
	client   TaskClient
	interval time.Duration
	onUpdate func(model.Task)
	logger   log.Logger

	mu      sync.Mutex
	current *session
}

// NewTracker returns a new task tracker.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Tracker{
		client:   cfg.Client,
		interval: cfg.Interval,
		onUpdate: cfg.OnUpdate,
		logger:   cfg.Logger,
	}, nil
}

// Submit submits a generation request and starts tracking the created task. If the
// submission fails the currently tracked task (if any) keeps being tracked.
//
// Polling is bound to ctx.
func (t *Tracker) Submit(ctx context.Context, req model.GenerationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	taskID, err := t.client.SubmitTask(ctx, req)
	if err != nil {
		return "", fmt.Errorf("could not submit task: %w", err)
	}

	t.logger.Infof("Task %s submitted", taskID)

	if err := t.track(ctx, taskID); err != nil {
		return "", err
	}

	return taskID, nil
}

// Track starts tracking an already existing task.
func (t *Tracker) Track(ctx context.Context, taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	return t.track(ctx, taskID)
}

func (t *Tracker) track(ctx context.Context, taskID string) error {
	s := &session{
		task: model.Task{ID: taskID, Status: model.TaskStatusPending},
		done: make(chan struct{}),
	}

	t.mu.Lock()
	prev := t.current
	t.current = s
	prevHandle := t.supersedeLocked(prev)
	t.mu.Unlock()

	// Cancel outside the tracker lock, the polling callbacks take it.
	if prevHandle != nil {
		prevHandle.Cancel()
		t.logger.Debugf("Task %s tracking cancelled", prev.task.ID)
	}

	t.onUpdate(s.task)

	h, err := poll.Start(ctx, poll.Config[*model.Task]{
		Probe: func(ctx context.Context) (*model.Task, error) {
			return t.client.GetTaskStatus(ctx, taskID)
		},
		Interval:   t.interval,
		ShouldStop: func(task *model.Task) bool { return task.Status.IsTerminal() },
		OnUpdate:   func(task *model.Task) { t.applyUpdate(s, task) },
		OnError:    func(err error) { t.applyError(s, err) },
		Logger:     t.logger,
	})
	if err != nil {
		return fmt.Errorf("could not start task polling: %w", err)
	}

	t.mu.Lock()
	s.handle = h
	replaced := t.current != s
	t.mu.Unlock()

	// Replaced before the handle was set, nobody else can cancel it.
	if replaced {
		h.Cancel()
	}

	return nil
}

func (t *Tracker) supersedeLocked(s *session) *poll.Handle {
	if s == nil {
		return nil
	}
	if !s.terminal {
		s.superseded = true
	}
	return t.stopLocked(s)
}

func (t *Tracker) stopLocked(s *session) *poll.Handle {
	if s == nil {
		return nil
	}
	s.finishLocked()
	return s.handle
}

func (t *Tracker) applyUpdate(s *session, task *model.Task) {
	if task == nil {
		return
	}

	t.mu.Lock()
	if t.current != s || s.terminal {
		t.mu.Unlock()
		return
	}

	id := s.task.ID
	s.task = *task
	if s.task.ID == "" {
		s.task.ID = id
	}
	if s.task.Status.IsTerminal() {
		s.terminal = true
		s.finishLocked()
	}
	snapshot := s.task
	t.mu.Unlock()

	switch snapshot.Status {
	case model.TaskStatusCompleted:
		t.logger.Infof("Task %s completed", snapshot.ID)
	case model.TaskStatusFailed:
		t.logger.Warningf("Task %s failed: %s", snapshot.ID, snapshot.Error)
	default:
		t.logger.Debugf("Task %s %s: %d%%", snapshot.ID, snapshot.Status, snapshot.Progress)
	}

	t.onUpdate(snapshot)
}

func (t *Tracker) applyError(s *session, err error) {
	t.mu.Lock()
	if t.current != s || s.terminal {
		t.mu.Unlock()
		return
	}

	perr := &model.PollingError{TaskID: s.task.ID, Err: err}
	s.task.Status = model.TaskStatusFailed
	s.task.Error = perr.Error()
	s.task.Result = nil
	s.terminal = true
	s.finishLocked()
	snapshot := s.task
	t.mu.Unlock()

	t.logger.Errorf("Task %s polling failed: %s", snapshot.ID, err)
	t.onUpdate(snapshot)
}

// Snapshot returns the tracker state and a copy of the tracked task, nil when idle.
func (t *Tracker) Snapshot() (State, *model.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return StateIdle, nil
	}

	task := t.current.task
	return stateOf(task.Status), &task
}

// stateOf maps a task status to the tracker state, statuses unknown to the tracker
// are still running tasks.
func stateOf(status model.TaskStatus) State {
	switch status {
	case model.TaskStatusPending:
		return StatePending
	case model.TaskStatusProcessing:
		return StateProcessing
	case model.TaskStatusCompleted:
		return StateCompleted
	case model.TaskStatusFailed:
		return StateFailed
	default:
		return StateProcessing
	}
}

// Wait blocks until the tracked task reaches a terminal state and returns it. It fails
// if the task is replaced, the polling stops or the context ends.
func (t *Tracker) Wait(ctx context.Context) (*model.Task, error) {
	t.mu.Lock()
	s := t.current
	var handleDone <-chan struct{}
	if s != nil && s.handle != nil {
		handleDone = s.handle.Done()
	}
	t.mu.Unlock()

	if s == nil {
		return nil, ErrIdle
	}

	select {
	case <-s.done:
	case <-handleDone:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case s.terminal:
		task := s.task
		return &task, nil
	case s.superseded:
		return nil, ErrSuperseded
	default:
		return nil, ErrStopped
	}
}

// Close stops tracking, the tracker goes back to idle. Waiting on a non terminal task
// returns ErrStopped.
func (t *Tracker) Close() {
	t.mu.Lock()
	prev := t.current
	t.current = nil
	h := t.stopLocked(prev)
	t.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
}
