// Package executor provides the built-in subtask executors and the registry
// that dispatches actions to them by type.
package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/taskfan/taskfan/internal/scheduler"
)

// Registry maps action types to executors. It implements
// scheduler.SubtaskExecutor by dispatching on Action.Type. Safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	execs map[string]scheduler.SubtaskExecutor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		execs: make(map[string]scheduler.SubtaskExecutor),
	}
}

// Options configures the built-in executors.
type Options struct {
	CommandWorkDir string
	HTTPTimeout    time.Duration
	Contexts       scheduler.ContextProvider
	Knowledge      scheduler.KnowledgeProvider
}

// DefaultRegistry creates a registry with all built-in executors.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	r.Register(ActionTypeCommand, NewCommandExecutor(opts.CommandWorkDir))
	r.Register(ActionTypeDelay, NewDelayExecutor())
	r.Register(ActionTypeHTTP, NewHTTPExecutor(opts.HTTPTimeout))
	r.Register(ActionTypeTransform, NewTransformExecutor(opts.Contexts))
	r.Register(ActionTypeLookup, NewLookupExecutor(opts.Knowledge))
	return r
}

// Register binds an executor to an action type, replacing any previous
// binding for that type.
func (r *Registry) Register(actionType string, exec scheduler.SubtaskExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs[actionType] = exec
}

// Has reports whether an executor is registered for the action type.
func (r *Registry) Has(actionType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.execs[actionType]
	return ok
}

// Types returns the registered action types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.execs))
	for t := range r.execs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Execute dispatches the action to the executor registered for its type.
func (r *Registry) Execute(ctx context.Context, action scheduler.Action) (any, error) {
	r.mu.RLock()
	exec, ok := r.execs[action.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, action.Type)
	}
	return exec.Execute(ctx, action)
}

// stringParam extracts a required string param.
func stringParam(action scheduler.Action, key string) (string, error) {
	v, ok := action.Params[key]
	if !ok {
		return "", fmt.Errorf("%w: %s: %q is required", ErrBadParams, action.Type, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s: %q must be a string", ErrBadParams, action.Type, key)
	}
	return s, nil
}

// optionalString extracts an optional string param, returning def when the
// key is absent.
func optionalString(action scheduler.Action, key, def string) string {
	if v, ok := action.Params[key].(string); ok {
		return v
	}
	return def
}

// intParam extracts a numeric param. JSON decoding yields float64, so both
// forms are accepted.
func intParam(action scheduler.Action, key string) (int, bool) {
	switch v := action.Params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// stringSliceParam extracts a []string param. JSON decoding yields []any, so
// both forms are accepted.
func stringSliceParam(action scheduler.Action, key string) ([]string, error) {
	v, ok := action.Params[key]
	if !ok {
		return nil, nil
	}
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s: %q must contain only strings", ErrBadParams, action.Type, key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s: %q must be a string list", ErrBadParams, action.Type, key)
	}
}
