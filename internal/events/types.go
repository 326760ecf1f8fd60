package events

import (
	"time"
)

// Event is the base interface for all scheduler events.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants
const (
	TopicTask    = "task"
	TopicSubtask = "subtask"
)

// Event type constants
const (
	EventTypeSubtaskStarted  = "subtask.started"
	EventTypeSubtaskFinished = "subtask.finished"
	EventTypeTaskProgress    = "task.progress"
	EventTypeTaskFinished    = "task.finished"
)

// SubtaskStartedEvent is published when a subtask begins executing.
type SubtaskStartedEvent struct {
	Task        string
	Subtask     string
	Description string
	Timestamp   time.Time
}

func (e SubtaskStartedEvent) EventType() string { return EventTypeSubtaskStarted }
func (e SubtaskStartedEvent) TaskID() string    { return e.Task }

// SubtaskFinishedEvent is published when a subtask reaches a terminal
// status. Error is empty unless the subtask failed.
type SubtaskFinishedEvent struct {
	Task      string
	Subtask   string
	Status    string
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

func (e SubtaskFinishedEvent) EventType() string { return EventTypeSubtaskFinished }
func (e SubtaskFinishedEvent) TaskID() string    { return e.Task }

// TaskProgressEvent is published whenever a task's per-status counts change.
type TaskProgressEvent struct {
	Task      string
	Total     int
	Pending   int
	Ready     int
	Running   int
	Completed int
	Failed    int
	Skipped   int
	Cancelled int
	Progress  float64
	Timestamp time.Time
}

func (e TaskProgressEvent) EventType() string { return EventTypeTaskProgress }
func (e TaskProgressEvent) TaskID() string    { return e.Task }

// TaskFinishedEvent is published when a task reaches a terminal status.
type TaskFinishedEvent struct {
	Task      string
	Status    string
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFinishedEvent) EventType() string { return EventTypeTaskFinished }
func (e TaskFinishedEvent) TaskID() string    { return e.Task }
