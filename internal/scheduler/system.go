package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskfan/taskfan/internal/events"
)

// DefaultMaxParallel is the worker-slot bound used when Options does not set
// one.
const DefaultMaxParallel = 4

// Options configures a System. Executor is required; every other collaborator
// is optional.
type Options struct {
	// MaxParallel bounds the number of subtasks executing simultaneously
	// per task (default 4).
	MaxParallel int

	// Executor runs subtask action payloads.
	Executor SubtaskExecutor

	// Decomposer produces subtask definitions when the caller supplies none
	// (default StepDecomposer).
	Decomposer TaskDecomposer

	// Recovery, when set, gets one chance to substitute a retried action for
	// each failed subtask.
	Recovery ErrorRecoveryHook

	// Bus, when set, receives task and subtask lifecycle events.
	Bus *events.Bus

	// Archive, when set, receives the final report of every terminal task.
	Archive ReportArchive

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// System is the public scheduling surface: it decomposes tasks into
// dependency graphs and executes them on a bounded worker pool. Tasks do not
// share any mutable state with each other.
type System struct {
	registry   *Registry
	executor   SubtaskExecutor
	decomposer TaskDecomposer
	recovery   ErrorRecoveryHook
	bus        *events.Bus
	archive    ReportArchive
	limit      int
	log        *slog.Logger
}

// New creates a System from the given options.
func New(opts Options) (*System, error) {
	if opts.Executor == nil {
		return nil, fmt.Errorf("scheduler: Options.Executor is required")
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if opts.Decomposer == nil {
		opts.Decomposer = StepDecomposer{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &System{
		registry:   NewRegistry(),
		executor:   opts.Executor,
		decomposer: opts.Decomposer,
		recovery:   opts.Recovery,
		bus:        opts.Bus,
		archive:    opts.Archive,
		limit:      opts.MaxParallel,
		log:        opts.Logger,
	}, nil
}

// DecomposeTask builds and registers the dependency graph for a task. When
// defs is nil the decomposer collaborator supplies the structure. Returns
// the new task id.
//
// Structural problems (empty decomposition, cycles, dangling or duplicate
// ids) are rejected here and never enter the registry.
func (s *System) DecomposeTask(ctx context.Context, spec TaskSpec, defs []SubtaskDef) (string, error) {
	if defs == nil {
		var err error
		defs, err = s.decomposer.Decompose(ctx, spec)
		if err != nil {
			return "", err
		}
		if len(defs) == 0 {
			return "", fmt.Errorf("%w: decomposer returned nothing for task %q", ErrEmptyDecomposition, spec.Name)
		}
	}

	graph, err := BuildGraph(defs)
	if err != nil {
		return "", err
	}

	entry := s.registry.Add(spec, graph, NewResultStore(graph))
	task := entry.state.snapshot()
	s.log.Info("task decomposed", "task_id", task.ID, "name", task.Name, "subtasks", graph.Len())
	return task.ID, nil
}

// ExecuteTask starts the scheduling loop for a pending task and returns an
// initial status snapshot. Execution proceeds asynchronously; ctx carries
// the cooperative cancellation signal for the whole task.
func (s *System) ExecuteTask(ctx context.Context, taskID string) (StatusSnapshot, error) {
	entry, ok := s.registry.Get(taskID)
	if !ok {
		return StatusSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	entry.runMu.Lock()
	defer entry.runMu.Unlock()

	if !entry.state.transition(TaskRunning, TaskPending) {
		return StatusSnapshot{}, fmt.Errorf("%w: %s is %s", ErrAlreadyStarted, taskID, entry.state.snapshot().Status)
	}

	execCtx, cancel := context.WithCancel(ctx)
	entry.runner = &runner{
		state:      entry.state,
		graph:      entry.graph,
		store:      entry.store,
		exec:       s.executor,
		recovery:   s.recovery,
		locks:      NewResourceLocks(),
		limit:      s.limit,
		bus:        s.bus,
		archive:    s.archive,
		log:        s.log,
		cancelExec: cancel,
		cancelCh:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	go entry.runner.run(execCtx)

	s.log.Info("task started", "task_id", taskID, "max_parallel", s.limit)
	return s.snapshot(entry), nil
}

// GetTaskStatus returns the overall status, progress, and per-status counts
// for a task.
func (s *System) GetTaskStatus(taskID string) (StatusSnapshot, error) {
	entry, ok := s.registry.Get(taskID)
	if !ok {
		return StatusSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	return s.snapshot(entry), nil
}

// GetTaskResults returns the per-subtask result map. For a task that is not
// yet terminal the report reflects the current partial state.
func (s *System) GetTaskResults(taskID string) (*Report, error) {
	entry, ok := s.registry.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	return buildReport(entry.state.snapshot(), entry.graph, entry.store), nil
}

// CancelTask cancels a task: nothing new is dispatched, not-yet-started
// subtasks are withdrawn, and in-flight executors receive the cooperative
// cancellation signal but may finish naturally. Cancelling a task that is
// already terminal is a no-op, not an error.
func (s *System) CancelTask(taskID string) (StatusSnapshot, error) {
	entry, ok := s.registry.Get(taskID)
	if !ok {
		return StatusSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	entry.runMu.Lock()
	defer entry.runMu.Unlock()

	switch {
	case entry.state.snapshot().Status.Terminal():
		// Idempotent no-op.
	case entry.runner != nil:
		entry.runner.Cancel()
		s.log.Info("task cancelled", "task_id", taskID)
	default:
		// Never executed: cancel the task and every subtask directly.
		entry.state.transition(TaskCancelled, TaskPending)
		entry.store.CancelRemaining()
		s.log.Info("task cancelled", "task_id", taskID)
	}

	return s.snapshot(entry), nil
}

// DiscardTask removes a task from the registry. Running tasks must be
// cancelled (and drained) first.
func (s *System) DiscardTask(taskID string) error {
	entry, ok := s.registry.Get(taskID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if entry.state.snapshot().Status == TaskRunning {
		return fmt.Errorf("%w: %s", ErrTaskActive, taskID)
	}
	s.registry.Remove(taskID)
	return nil
}

// WaitTask blocks until the task's scheduling loop has exited or ctx is
// done. It returns immediately for tasks that are already terminal.
func (s *System) WaitTask(ctx context.Context, taskID string) error {
	entry, ok := s.registry.Get(taskID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	entry.runMu.Lock()
	r := entry.runner
	entry.runMu.Unlock()

	if r == nil {
		if entry.state.snapshot().Status.Terminal() {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNotStarted, taskID)
	}

	select {
	case <-r.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *System) snapshot(entry *taskEntry) StatusSnapshot {
	task := entry.state.snapshot()
	return StatusSnapshot{
		TaskID:     task.ID,
		Name:       task.Name,
		Status:     task.Status,
		Progress:   entry.store.Progress(),
		Total:      entry.store.Len(),
		Counts:     entry.store.Counts(),
		CreatedAt:  task.CreatedAt,
		StartedAt:  task.StartedAt,
		FinishedAt: task.FinishedAt,
	}
}
