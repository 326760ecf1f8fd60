package scheduler

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// TestStepDecomposerChains verifies steps become a sequential chain unless
// marked parallel.
func TestStepDecomposerChains(t *testing.T) {
	spec := TaskSpec{
		Name: "build",
		Steps: []StepSpec{
			{Description: "fetch", Action: Action{Type: "http"}},
			{Description: "compile", Action: Action{Type: "command"}},
			{Description: "lint", Action: Action{Type: "command"}, Parallel: true},
			{Description: "package", Action: Action{Type: "command"}},
		},
	}

	defs, err := StepDecomposer{}.Decompose(context.Background(), spec)
	if err != nil {
		t.Fatalf("Decompose() error: %v", err)
	}
	if len(defs) != 4 {
		t.Fatalf("got %d defs, want 4", len(defs))
	}

	wantIDs := []string{"subtask_1", "subtask_2", "subtask_3", "subtask_4"}
	for i, def := range defs {
		if def.ID != wantIDs[i] {
			t.Errorf("defs[%d].ID = %q, want %q", i, def.ID, wantIDs[i])
		}
	}

	if defs[0].DependsOn != nil {
		t.Errorf("first step DependsOn = %v, want none", defs[0].DependsOn)
	}
	if !reflect.DeepEqual(defs[1].DependsOn, []string{"subtask_1"}) {
		t.Errorf("step 2 DependsOn = %v, want [subtask_1]", defs[1].DependsOn)
	}
	if defs[2].DependsOn != nil {
		t.Errorf("parallel step DependsOn = %v, want none", defs[2].DependsOn)
	}
	if !reflect.DeepEqual(defs[3].DependsOn, []string{"subtask_3"}) {
		t.Errorf("step 4 DependsOn = %v, want [subtask_3]", defs[3].DependsOn)
	}
}

// TestStepDecomposerEmpty verifies a task without steps is rejected.
func TestStepDecomposerEmpty(t *testing.T) {
	_, err := StepDecomposer{}.Decompose(context.Background(), TaskSpec{Name: "empty"})
	if !errors.Is(err, ErrEmptyDecomposition) {
		t.Fatalf("Decompose() error = %v, want ErrEmptyDecomposition", err)
	}
}

// TestStepDecomposerDefaultDescriptions verifies unnamed steps get positional
// descriptions.
func TestStepDecomposerDefaultDescriptions(t *testing.T) {
	defs, err := StepDecomposer{}.Decompose(context.Background(), TaskSpec{
		Name:  "anon",
		Steps: []StepSpec{{Action: noopAction()}, {Action: noopAction()}},
	})
	if err != nil {
		t.Fatalf("Decompose() error: %v", err)
	}
	if defs[0].Description != "Step 1" || defs[1].Description != "Step 2" {
		t.Errorf("descriptions = %q, %q; want Step 1, Step 2", defs[0].Description, defs[1].Description)
	}
}
