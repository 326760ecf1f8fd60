package scheduler

import "time"

// TaskStatus represents the overall state of a decomposed task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"   // Decomposed, not yet executing
	TaskRunning   TaskStatus = "running"   // Scheduler loop is active
	TaskCompleted TaskStatus = "completed" // Every subtask completed
	TaskFailed    TaskStatus = "failed"    // At least one subtask failed or was skipped
	TaskCancelled TaskStatus = "cancelled" // Cancelled by the caller
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// Task is the unit the caller decomposes and executes. Owned by the
// registry; mutated only by the scheduler during execution.
type Task struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   time.Time  `json:"started_at,omitzero"`
	FinishedAt  time.Time  `json:"finished_at,omitzero"`
}

// TaskSpec describes a task before decomposition. Steps feed the default
// decomposer when no explicit subtask definitions are supplied.
type TaskSpec struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Steps       []StepSpec `json:"steps,omitempty"`
}

// StepSpec is one step of a task as described by the caller. Steps form a
// sequential chain unless marked Parallel, in which case the step does not
// depend on its predecessor.
type StepSpec struct {
	Description string `json:"description,omitempty"`
	Action      Action `json:"action"`
	Parallel    bool   `json:"parallel,omitempty"`
}
