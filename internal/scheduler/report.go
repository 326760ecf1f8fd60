package scheduler

import "time"

// StatusSnapshot is the immutable view returned by GetTaskStatus.
type StatusSnapshot struct {
	TaskID     string                `json:"task_id"`
	Name       string                `json:"name"`
	Status     TaskStatus            `json:"status"`
	Progress   float64               `json:"progress"`
	Total      int                   `json:"total_subtasks"`
	Counts     map[SubtaskStatus]int `json:"counts"`
	CreatedAt  time.Time             `json:"created_at"`
	StartedAt  time.Time             `json:"started_at,omitzero"`
	FinishedAt time.Time             `json:"finished_at,omitzero"`
}

// Report is the full per-subtask result map returned by GetTaskResults. For
// a non-terminal task it reflects the in-flight state: Status is the current
// task status and ExecutionTime is the elapsed time so far.
type Report struct {
	TaskID        string             `json:"task_id"`
	Name          string             `json:"name"`
	Status        TaskStatus         `json:"status"`
	Progress      float64            `json:"progress"`
	ExecutionTime time.Duration      `json:"execution_time"`
	SubtaskOrder  []string           `json:"subtask_order"`
	Subtasks      map[string]Subtask `json:"subtasks"`
}

// Failed returns the ids of failed subtasks in declaration order.
func (r *Report) Failed() []string {
	var out []string
	for _, id := range r.SubtaskOrder {
		if r.Subtasks[id].Status == SubtaskFailed {
			out = append(out, id)
		}
	}
	return out
}

// Skipped returns the ids of skipped subtasks in declaration order.
func (r *Report) Skipped() []string {
	var out []string
	for _, id := range r.SubtaskOrder {
		if r.Subtasks[id].Status == SubtaskSkipped {
			out = append(out, id)
		}
	}
	return out
}
