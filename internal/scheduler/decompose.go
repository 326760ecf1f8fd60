package scheduler

import (
	"context"
	"fmt"
)

// StepDecomposer is the default TaskDecomposer. It turns a task's declared
// steps into a chain of subtasks: each step depends on its predecessor
// unless marked Parallel.
type StepDecomposer struct{}

// Decompose implements TaskDecomposer.
func (StepDecomposer) Decompose(_ context.Context, spec TaskSpec) ([]SubtaskDef, error) {
	if len(spec.Steps) == 0 {
		return nil, fmt.Errorf("%w: task %q declares no steps", ErrEmptyDecomposition, spec.Name)
	}

	defs := make([]SubtaskDef, 0, len(spec.Steps))
	for i, step := range spec.Steps {
		def := SubtaskDef{
			ID:          fmt.Sprintf("subtask_%d", i+1),
			Description: step.Description,
			Action:      step.Action,
		}
		if def.Description == "" {
			def.Description = fmt.Sprintf("Step %d", i+1)
		}
		if i > 0 && !step.Parallel {
			def.DependsOn = []string{fmt.Sprintf("subtask_%d", i)}
		}
		defs = append(defs, def)
	}
	return defs, nil
}
