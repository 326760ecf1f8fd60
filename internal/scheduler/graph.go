package scheduler

import (
	"fmt"

	"github.com/gammazero/toposort"
)

// Graph holds the subtasks of one task and their dependency edges. It is
// immutable after BuildGraph: all mutable state lives in the ResultStore, so
// readiness can be recomputed from a consistent snapshot at any time.
type Graph struct {
	order      []string               // declaration order of subtask ids
	defs       map[string]*SubtaskDef // id -> definition
	dependents map[string][]string    // id -> ids that depend on it, declaration order
}

// BuildGraph validates subtask definitions and constructs the dependency
// graph. It rejects empty input, duplicate ids, edges to undeclared ids, and
// cycles.
func BuildGraph(defs []SubtaskDef) (*Graph, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyDecomposition
	}

	g := &Graph{
		defs:       make(map[string]*SubtaskDef, len(defs)),
		dependents: make(map[string][]string),
	}

	for i := range defs {
		def := defs[i]
		if def.ID == "" {
			return nil, fmt.Errorf("subtask at index %d has no id", i)
		}
		if _, exists := g.defs[def.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSubtask, def.ID)
		}
		g.defs[def.ID] = &def
		g.order = append(g.order, def.ID)
	}

	// Every edge must reference a declared subtask.
	for _, id := range g.order {
		for _, depID := range g.defs[id].DependsOn {
			if _, exists := g.defs[depID]; !exists {
				return nil, fmt.Errorf("%w: subtask %q depends on %q", ErrUnknownDependency, id, depID)
			}
			g.dependents[depID] = append(g.dependents[depID], id)
		}
	}

	// Topological sort detects cycles, including self-loops.
	var edges []toposort.Edge
	for _, id := range g.order {
		def := g.defs[id]
		if len(def.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, depID := range def.DependsOn {
			edges = append(edges, toposort.Edge{depID, id})
		}
	}
	if _, err := toposort.Toposort(edges); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclicDependency, err)
	}

	return g, nil
}

// Len returns the number of subtasks in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Order returns subtask ids in declaration order.
func (g *Graph) Order() []string {
	return append([]string(nil), g.order...)
}

// Def returns the definition for a subtask id.
func (g *Graph) Def(id string) (SubtaskDef, bool) {
	def, ok := g.defs[id]
	if !ok {
		return SubtaskDef{}, false
	}
	return *def, true
}

// ReadySet returns, in declaration order, every subtask that is pending and
// whose dependencies have all completed. It is recomputed from the store on
// every call; nothing is cached.
func (g *Graph) ReadySet(store *ResultStore) []string {
	var ready []string
	for _, id := range g.order {
		if store.Status(id) != SubtaskPending {
			continue
		}
		eligible := true
		for _, depID := range g.defs[id].DependsOn {
			if store.Status(depID) != SubtaskCompleted {
				eligible = false
				break
			}
		}
		if eligible {
			ready = append(ready, id)
		}
	}
	return ready
}

// IsTerminal reports whether every subtask has reached a terminal status.
func (g *Graph) IsTerminal(store *ResultStore) bool {
	for _, id := range g.order {
		if !store.Status(id).Terminal() {
			return false
		}
	}
	return true
}

// TransitiveDependents returns every subtask reachable from id along
// dependency edges, in breadth-first declaration order.
func (g *Graph) TransitiveDependents(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	queue := append([]string(nil), g.dependents[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, g.dependents[next]...)
	}
	return out
}
