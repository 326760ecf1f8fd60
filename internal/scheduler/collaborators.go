package scheduler

import "context"

// TaskDecomposer produces subtask definitions for a task when the caller
// supplies none. The scheduler never guesses structure itself.
type TaskDecomposer interface {
	Decompose(ctx context.Context, spec TaskSpec) ([]SubtaskDef, error)
}

// SubtaskExecutor runs one subtask's action payload. The context carries the
// cooperative cancellation signal; implementations must observe it promptly.
// Per-subtask timeouts, if any, are the executor's responsibility and
// surface as ordinary errors.
type SubtaskExecutor interface {
	Execute(ctx context.Context, action Action) (any, error)
}

// ExecutorFunc adapts a function to the SubtaskExecutor interface.
type ExecutorFunc func(ctx context.Context, action Action) (any, error)

// Execute implements SubtaskExecutor.
func (f ExecutorFunc) Execute(ctx context.Context, action Action) (any, error) {
	return f(ctx, action)
}

// ErrorRecoveryHook may substitute a retried action for a failed subtask
// before it is marked permanently failed. The scheduler invokes it at most
// once per subtask; returning false propagates the original failure.
type ErrorRecoveryHook interface {
	Recover(ctx context.Context, sub Subtask, execErr error) (Action, bool)
}

// ContextProvider is a read-only lookup executors may consult for shared
// task context values. The scheduler core never calls it.
type ContextProvider interface {
	Value(ctx context.Context, key string) (any, bool)
}

// KnowledgeItem is one hit returned by a KnowledgeProvider lookup.
type KnowledgeItem struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// KnowledgeProvider is a read-only semantic lookup executors may consult.
// The scheduler core never calls it.
type KnowledgeProvider interface {
	Lookup(ctx context.Context, query string, limit int) ([]KnowledgeItem, error)
}

// ReportArchive receives the final report of every terminal task. Archiving
// is fire-and-forget: failures are logged, never surfaced to the task.
type ReportArchive interface {
	SaveReport(ctx context.Context, report *Report) error
}
