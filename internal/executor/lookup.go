package executor

import (
	"context"
	"fmt"

	"github.com/taskfan/taskfan/internal/scheduler"
)

// ActionTypeLookup queries the knowledge provider.
//
// Params:
//
//	{
//	    "query": "deploy checklist",   // required
//	    "limit": 5                     // optional, default 5
//	}
//
// The result is a map with "items" (the matched knowledge items) and "count".
const ActionTypeLookup = "lookup"

const defaultLookupLimit = 5

// LookupExecutor retrieves knowledge items relevant to a query.
type LookupExecutor struct {
	knowledge scheduler.KnowledgeProvider
}

// NewLookupExecutor creates a LookupExecutor backed by the given provider.
func NewLookupExecutor(knowledge scheduler.KnowledgeProvider) *LookupExecutor {
	return &LookupExecutor{knowledge: knowledge}
}

// Execute runs the lookup.
func (e *LookupExecutor) Execute(ctx context.Context, action scheduler.Action) (any, error) {
	query, err := stringParam(action, "query")
	if err != nil {
		return nil, err
	}
	limit, ok := intParam(action, "limit")
	if !ok || limit <= 0 {
		limit = defaultLookupLimit
	}

	if e.knowledge == nil {
		return nil, fmt.Errorf("%s: no knowledge provider configured", ActionTypeLookup)
	}

	items, err := e.knowledge.Lookup(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", query, err)
	}
	return map[string]any{
		"items": items,
		"count": len(items),
	}, nil
}
