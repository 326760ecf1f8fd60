package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// ResultStore is the source of truth for per-subtask outcomes. It holds
// exactly one record per subtask id and serializes every status change,
// enforcing the legal transition sequence: pending to ready to running to a
// terminal state, with skipped and cancelled reachable from pending/ready.
type ResultStore struct {
	mu    sync.RWMutex
	order []string
	recs  map[string]*Subtask
}

// NewResultStore seeds one pending record per subtask in the graph.
func NewResultStore(g *Graph) *ResultStore {
	s := &ResultStore{
		order: g.Order(),
		recs:  make(map[string]*Subtask, g.Len()),
	}
	for _, id := range s.order {
		def, _ := g.Def(id)
		s.recs[id] = &Subtask{
			ID:          def.ID,
			Description: def.Description,
			Action:      def.Action,
			DependsOn:   append([]string(nil), def.DependsOn...),
			Resources:   append([]string(nil), def.Resources...),
			Status:      SubtaskPending,
		}
	}
	return s
}

// Status returns the current status of a subtask, or "" for unknown ids.
func (s *ResultStore) Status(id string) SubtaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return ""
	}
	return rec.Status
}

// Get returns an immutable snapshot of one subtask record.
func (s *ResultStore) Get(id string) (Subtask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return Subtask{}, false
	}
	return cloneSubtask(rec), true
}

// Snapshot returns immutable copies of every record, keyed by subtask id.
func (s *ResultStore) Snapshot() map[string]Subtask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Subtask, len(s.recs))
	for id, rec := range s.recs {
		out[id] = cloneSubtask(rec)
	}
	return out
}

// MarkReady moves a pending subtask into the ready set.
func (s *ResultStore) MarkReady(id string) error {
	return s.transition(id, []SubtaskStatus{SubtaskPending}, func(rec *Subtask) {
		rec.Status = SubtaskReady
	})
}

// MarkRunning claims a ready subtask for execution. The check-and-set is
// atomic, so two slots can never claim the same subtask.
func (s *ResultStore) MarkRunning(id string) error {
	return s.transition(id, []SubtaskStatus{SubtaskReady}, func(rec *Subtask) {
		rec.Status = SubtaskRunning
		rec.Attempts = 1
		rec.StartedAt = time.Now()
	})
}

// NoteRetry records one additional executor attempt for a running subtask.
func (s *ResultStore) NoteRetry(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recs[id]; ok && rec.Status == SubtaskRunning {
		rec.Attempts++
	}
}

// MarkCompleted records a successful result for a running subtask.
func (s *ResultStore) MarkCompleted(id string, result any) error {
	return s.transition(id, []SubtaskStatus{SubtaskRunning}, func(rec *Subtask) {
		rec.Status = SubtaskCompleted
		rec.Result = result
		rec.FinishedAt = time.Now()
	})
}

// MarkFailed records an execution error for a running subtask.
func (s *ResultStore) MarkFailed(id string, execErr error) error {
	return s.transition(id, []SubtaskStatus{SubtaskRunning}, func(rec *Subtask) {
		rec.Status = SubtaskFailed
		if execErr != nil {
			rec.Error = execErr.Error()
		}
		rec.FinishedAt = time.Now()
	})
}

// MarkSkipped marks a not-yet-started subtask as skipped because the given
// ancestor failed.
func (s *ResultStore) MarkSkipped(id, failedAncestor string) error {
	return s.transition(id, []SubtaskStatus{SubtaskPending, SubtaskReady}, func(rec *Subtask) {
		rec.Status = SubtaskSkipped
		rec.SkippedFor = failedAncestor
		rec.FinishedAt = time.Now()
	})
}

// MarkCancelled withdraws a subtask. Running subtasks land here only when
// their executor observed the cancellation signal.
func (s *ResultStore) MarkCancelled(id string) error {
	return s.transition(id, []SubtaskStatus{SubtaskPending, SubtaskReady, SubtaskRunning}, func(rec *Subtask) {
		rec.Status = SubtaskCancelled
		rec.FinishedAt = time.Now()
	})
}

// CancelRemaining cancels every subtask that has not started executing.
// Returns the ids that were cancelled.
func (s *ResultStore) CancelRemaining() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cancelled []string
	now := time.Now()
	for _, id := range s.order {
		rec := s.recs[id]
		if rec.Status == SubtaskPending || rec.Status == SubtaskReady {
			rec.Status = SubtaskCancelled
			rec.FinishedAt = now
			cancelled = append(cancelled, id)
		}
	}
	return cancelled
}

// Counts returns the number of subtasks per status.
func (s *ResultStore) Counts() map[SubtaskStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[SubtaskStatus]int)
	for _, rec := range s.recs {
		counts[rec.Status]++
	}
	return counts
}

// Progress returns (completed + skipped) / total. It is monotonically
// non-decreasing over a task's lifetime and reaches 1.0 only when every
// subtask finished without failure.
func (s *ResultStore) Progress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.recs) == 0 {
		return 0
	}
	done := 0
	for _, rec := range s.recs {
		if rec.Status == SubtaskCompleted || rec.Status == SubtaskSkipped {
			done++
		}
	}
	return float64(done) / float64(len(s.recs))
}

// Len returns the total number of subtask records.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

func (s *ResultStore) transition(id string, from []SubtaskStatus, apply func(*Subtask)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return fmt.Errorf("no record for subtask %q", id)
	}
	for _, status := range from {
		if rec.Status == status {
			apply(rec)
			return nil
		}
	}
	return fmt.Errorf("%w: subtask %q is %s", ErrInvalidTransition, id, rec.Status)
}

func cloneSubtask(rec *Subtask) Subtask {
	cp := *rec
	cp.DependsOn = append([]string(nil), rec.DependsOn...)
	cp.Resources = append([]string(nil), rec.Resources...)
	return cp
}
