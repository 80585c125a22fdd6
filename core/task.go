package core

import "time"

// Task is a transient unit of work bound to a single agent. It does not
// persist; executing it produces a TaskResult that both the caller and the
// event publisher receive.
type Task struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Agent       string         `json:"agent"`
	Tool        string         `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`

	// Input carries the output of a prior step when the task is part of a
	// sequential orchestration whose step declared a dependency on it.
	Input any `json:"input,omitempty"`
}

// NewTask creates a task with a fresh id for the named agent.
func NewTask(agent, description string) Task {
	return Task{ID: NewID(), Agent: agent, Description: description}
}

// TaskStatus is the terminal outcome of a task execution.
type TaskStatus string

const (
	// TaskSucceeded indicates the capability completed and produced output.
	TaskSucceeded TaskStatus = "succeeded"
	// TaskFailed indicates the capability failed, was cancelled, or the
	// agent could not start the task.
	TaskFailed TaskStatus = "failed"
)

// TaskResult captures the outcome of a single task execution.
type TaskResult struct {
	TaskID      string     `json:"task_id"`
	Agent       string     `json:"agent"`
	Status      TaskStatus `json:"status"`
	Output      any        `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// Succeeded reports whether the task reached a successful terminal state.
func (r TaskResult) Succeeded() bool { return r.Status == TaskSucceeded }

// Duration returns the wall-clock time the execution took.
func (r TaskResult) Duration() time.Duration { return r.CompletedAt.Sub(r.StartedAt) }
