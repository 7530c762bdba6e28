package model

// TaskStatus represents the state of a generation task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal returns true when no further transitions follow the status.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task is one server tracked image generation job.
type Task struct {
	ID          string
	Status      TaskStatus
	Progress    int
	CurrentStep int
	TotalSteps  int
	Message     string
	// Error is only set when the task failed.
	Error string
	// Result is only set when the task completed.
	Result *ImageRecord
}
