package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/hashstructure/v2"
)

// taskState guards the Task record shared between the registry, the runner,
// and status accessors.
type taskState struct {
	mu   sync.Mutex
	task Task
}

func (ts *taskState) snapshot() Task {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.task
}

// transition moves the task to a new status if it is currently in one of the
// given states. Returns false otherwise.
func (ts *taskState) transition(to TaskStatus, from ...TaskStatus) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, status := range from {
		if ts.task.Status == status {
			ts.task.Status = to
			switch to {
			case TaskRunning:
				ts.task.StartedAt = time.Now()
			case TaskCompleted, TaskFailed, TaskCancelled:
				ts.task.FinishedAt = time.Now()
			}
			return true
		}
	}
	return false
}

// finish stamps the finish time without changing an already-terminal status.
func (ts *taskState) finish(status TaskStatus) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !ts.task.Status.Terminal() {
		ts.task.Status = status
	}
	if ts.task.FinishedAt.IsZero() {
		ts.task.FinishedAt = time.Now()
	}
}

// taskEntry bundles everything the registry owns for one task.
type taskEntry struct {
	state  *taskState
	graph  *Graph
	store  *ResultStore
	runner *runner // nil until ExecuteTask
	runMu  sync.Mutex
}

// Registry is the process-wide map from task id to task state. Entries are
// created by DecomposeTask and retained until explicitly discarded.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*taskEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*taskEntry)}
}

// Add registers a new task entry under a freshly generated id and returns it.
func (r *Registry) Add(spec TaskSpec, graph *Graph, store *ResultStore) *taskEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := newTaskID(spec)
	if _, taken := r.tasks[id]; taken {
		// Same spec registered within the same second; disambiguate.
		id = fmt.Sprintf("%s_%s", id, uuid.NewString()[:8])
	}

	entry := &taskEntry{
		state: &taskState{task: Task{
			ID:          id,
			Name:        spec.Name,
			Description: spec.Description,
			Status:      TaskPending,
			CreatedAt:   time.Now(),
		}},
		graph: graph,
		store: store,
	}
	r.tasks[id] = entry
	return entry
}

// Get returns the entry for a task id.
func (r *Registry) Get(taskID string) (*taskEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tasks[taskID]
	return entry, ok
}

// Remove deletes a task entry.
func (r *Registry) Remove(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, taskID)
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// newTaskID derives an id from the creation time and a structural
// fingerprint of the spec, so identical specs are recognizable in logs and
// the history archive.
func newTaskID(spec TaskSpec) string {
	hash, err := hashstructure.Hash(spec, hashstructure.FormatV2, nil)
	if err != nil {
		return fmt.Sprintf("task_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
	}
	return fmt.Sprintf("task_%d_%08x", time.Now().Unix(), uint32(hash))
}
