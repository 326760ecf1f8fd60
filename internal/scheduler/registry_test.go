package scheduler

import (
	"regexp"
	"testing"
)

// TestNewTaskIDFormat verifies the id shape used in logs and the archive.
func TestNewTaskIDFormat(t *testing.T) {
	id := newTaskID(TaskSpec{Name: "deploy", Steps: []StepSpec{{Action: noopAction()}}})

	pattern := regexp.MustCompile(`^task_\d+_[0-9a-f]{8}$`)
	if !pattern.MatchString(id) {
		t.Errorf("newTaskID() = %q, want task_<unix>_<hex8>", id)
	}
}

// TestRegistryCollisionGetsSuffix verifies two identical specs registered in
// the same second get distinct ids.
func TestRegistryCollisionGetsSuffix(t *testing.T) {
	reg := NewRegistry()
	spec := TaskSpec{Name: "dup"}

	g, err := BuildGraph([]SubtaskDef{{ID: "a", Action: noopAction()}})
	if err != nil {
		t.Fatalf("BuildGraph() error: %v", err)
	}

	first := reg.Add(spec, g, NewResultStore(g))
	second := reg.Add(spec, g, NewResultStore(g))

	firstID := first.state.snapshot().ID
	secondID := second.state.snapshot().ID
	if firstID == secondID {
		t.Fatalf("both registrations produced id %q", firstID)
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
}

// TestTaskStateTransitions verifies guarded status transitions and that
// finish never demotes a terminal status.
func TestTaskStateTransitions(t *testing.T) {
	ts := &taskState{task: Task{ID: "t", Status: TaskPending}}

	if !ts.transition(TaskRunning, TaskPending) {
		t.Fatal("pending -> running rejected")
	}
	if ts.transition(TaskRunning, TaskPending) {
		t.Fatal("second pending -> running allowed")
	}
	if ts.snapshot().StartedAt.IsZero() {
		t.Error("StartedAt not stamped on running")
	}

	ts.transition(TaskCancelled, TaskRunning)
	ts.finish(TaskFailed)
	if got := ts.snapshot().Status; got != TaskCancelled {
		t.Errorf("finish overwrote terminal status: %s", got)
	}
	if ts.snapshot().FinishedAt.IsZero() {
		t.Error("FinishedAt not stamped")
	}
}
