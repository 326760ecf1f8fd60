package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/taskfan/taskfan/internal/scheduler"
)

// planFile is the on-disk description of a task. Either steps (decomposed
// into a chain automatically) or subtasks (an explicit dependency graph) must
// be present; subtasks win when both are.
type planFile struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Context     map[string]any         `json:"context,omitempty"`
	Steps       []scheduler.StepSpec   `json:"steps,omitempty"`
	Subtasks    []scheduler.SubtaskDef `json:"subtasks,omitempty"`
}

// loadPlan reads and validates a plan file.
func loadPlan(path string) (*planFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	var plan planFile
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	if plan.Name == "" {
		return nil, fmt.Errorf("plan %s: name is required", path)
	}
	if len(plan.Steps) == 0 && len(plan.Subtasks) == 0 {
		return nil, fmt.Errorf("plan %s: steps or subtasks required", path)
	}
	return &plan, nil
}

// staticContext exposes the plan's context block to transform actions.
type staticContext map[string]any

func (c staticContext) Value(_ context.Context, key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}
