package scheduler

import "time"

// SubtaskStatus represents the state of a single subtask.
type SubtaskStatus string

const (
	SubtaskPending   SubtaskStatus = "pending"   // Waiting for dependencies
	SubtaskReady     SubtaskStatus = "ready"     // All dependencies completed, awaiting a slot
	SubtaskRunning   SubtaskStatus = "running"   // Executor invocation in flight
	SubtaskCompleted SubtaskStatus = "completed" // Finished successfully
	SubtaskFailed    SubtaskStatus = "failed"    // Executor reported an error
	SubtaskSkipped   SubtaskStatus = "skipped"   // A transitive dependency failed
	SubtaskCancelled SubtaskStatus = "cancelled" // Withdrawn by task cancellation
)

// Terminal reports whether the status is a final state.
func (s SubtaskStatus) Terminal() bool {
	switch s {
	case SubtaskCompleted, SubtaskFailed, SubtaskSkipped, SubtaskCancelled:
		return true
	}
	return false
}

// Action is the opaque payload handed to the executor collaborator. The
// scheduler never interprets it beyond routing.
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// SubtaskDef declares one subtask of a task: what to run, which sibling
// subtasks must complete first, and which exclusive resources it touches.
type SubtaskDef struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Action      Action   `json:"action"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Resources   []string `json:"resources,omitempty"`
}

// Subtask is an immutable snapshot of a subtask's definition and outcome,
// as returned by status and result accessors.
type Subtask struct {
	ID          string        `json:"id"`
	Description string        `json:"description,omitempty"`
	Action      Action        `json:"action"`
	DependsOn   []string      `json:"depends_on,omitempty"`
	Resources   []string      `json:"resources,omitempty"`
	Status      SubtaskStatus `json:"status"`
	Result      any           `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	SkippedFor  string        `json:"skipped_for,omitempty"` // ID of the failed ancestor
	Attempts    int           `json:"attempts,omitempty"`
	StartedAt   time.Time     `json:"started_at,omitzero"`
	FinishedAt  time.Time     `json:"finished_at,omitzero"`
}

// Duration returns the wall-clock execution time of the subtask, or zero if
// it never started.
func (s Subtask) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
