package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskfan/taskfan/internal/scheduler"
)

// ActionTypeTransform maps input values into a new shape.
//
// Params:
//
//	{
//	    "mappings": {
//	        "name": "context:project_name",   // resolved via the context provider
//	        "mode": "full"                    // literal, passed through
//	    }
//	}
//
// Values prefixed with "context:" are resolved through the ContextProvider;
// everything else is passed through unchanged. The result is the resolved
// mappings map.
const ActionTypeTransform = "transform"

const contextRefPrefix = "context:"

// TransformExecutor resolves mapping values against shared task context.
type TransformExecutor struct {
	contexts scheduler.ContextProvider
}

// NewTransformExecutor creates a TransformExecutor. A nil provider means
// context references fail to resolve.
func NewTransformExecutor(contexts scheduler.ContextProvider) *TransformExecutor {
	return &TransformExecutor{contexts: contexts}
}

// Execute resolves the mappings.
func (e *TransformExecutor) Execute(ctx context.Context, action scheduler.Action) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mappings, ok := action.Params["mappings"].(map[string]any)
	if !ok || len(mappings) == 0 {
		return nil, fmt.Errorf("%w: %s: mappings required", ErrBadParams, ActionTypeTransform)
	}

	outputs := make(map[string]any, len(mappings))
	for key, value := range mappings {
		ref, isString := value.(string)
		if !isString || !strings.HasPrefix(ref, contextRefPrefix) {
			outputs[key] = value
			continue
		}

		ctxKey := strings.TrimPrefix(ref, contextRefPrefix)
		if e.contexts == nil {
			return nil, fmt.Errorf("transform %s: no context provider for %q", key, ctxKey)
		}
		resolved, found := e.contexts.Value(ctx, ctxKey)
		if !found {
			return nil, fmt.Errorf("transform %s: context key %q not found", key, ctxKey)
		}
		outputs[key] = resolved
	}
	return outputs, nil
}
