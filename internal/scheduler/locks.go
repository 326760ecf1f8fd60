package scheduler

import (
	"sort"
	"sync"
)

// ResourceLocks provides per-key mutual exclusion between concurrently
// running subtasks. A subtask that declares resource keys holds their locks
// for the duration of its executor invocation, so two running subtasks that
// share a resource serialize while unrelated subtasks proceed.
type ResourceLocks struct {
	mu    sync.Mutex             // guards the locks map itself
	locks map[string]*sync.Mutex // per-resource mutexes
}

// NewResourceLocks creates an empty lock table.
func NewResourceLocks() *ResourceLocks {
	return &ResourceLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Acquire takes the mutex for one resource key, creating it on first use.
func (r *ResourceLocks) Acquire(key string) {
	r.mu.Lock()
	lock, exists := r.locks[key]
	if !exists {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	r.mu.Unlock()

	// Acquired outside the table lock to avoid blocking other keys.
	lock.Lock()
}

// Release releases the mutex for one resource key.
func (r *ResourceLocks) Release(key string) {
	r.mu.Lock()
	lock, exists := r.locks[key]
	r.mu.Unlock()

	if exists {
		lock.Unlock()
	}
}

// AcquireAll takes the locks for every given key. Keys are sorted before
// acquisition so that overlapping sets never deadlock.
func (r *ResourceLocks) AcquireAll(keys []string) {
	if len(keys) == 0 {
		return
	}

	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	for _, key := range sorted {
		r.Acquire(key)
	}
}

// ReleaseAll releases every given key, in reverse sorted order for symmetry
// with AcquireAll.
func (r *ResourceLocks) ReleaseAll(keys []string) {
	if len(keys) == 0 {
		return
	}

	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	for i := len(sorted) - 1; i >= 0; i-- {
		r.Release(sorted[i])
	}
}
