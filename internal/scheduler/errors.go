package scheduler

import "errors"

// Structural errors are rejected synchronously at call time and never enter
// the graph. Callers match them with errors.Is.
var (
	// ErrEmptyDecomposition is returned when decomposition produced no subtasks.
	ErrEmptyDecomposition = errors.New("decomposition produced no subtasks")

	// ErrCyclicDependency is returned when the dependency relation contains a cycle.
	ErrCyclicDependency = errors.New("cyclic subtask dependency")

	// ErrUnknownDependency is returned when a subtask depends on an id not
	// declared in the task.
	ErrUnknownDependency = errors.New("dependency on unknown subtask")

	// ErrDuplicateSubtask is returned when two subtask definitions share an id.
	ErrDuplicateSubtask = errors.New("duplicate subtask id")

	// ErrUnknownTask is returned when no task with the given id is registered.
	ErrUnknownTask = errors.New("unknown task")

	// ErrAlreadyStarted is returned when execute is called on a task that is
	// not pending.
	ErrAlreadyStarted = errors.New("task already started")

	// ErrNotStarted is returned when the operation requires a task that has
	// begun executing.
	ErrNotStarted = errors.New("task not started")

	// ErrTaskActive is returned when the operation cannot apply to a task that
	// is still running.
	ErrTaskActive = errors.New("task is still running")

	// ErrInvalidTransition is returned when a subtask status change violates
	// the legal pending, ready, running, terminal sequence.
	ErrInvalidTransition = errors.New("invalid subtask status transition")
)
