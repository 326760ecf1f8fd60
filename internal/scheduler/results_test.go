package scheduler

import (
	"errors"
	"math"
	"testing"
)

func chainGraph(t *testing.T, n int) *Graph {
	t.Helper()
	defs := make([]SubtaskDef, 0, n)
	for i := 0; i < n; i++ {
		def := SubtaskDef{ID: string(rune('a' + i)), Action: noopAction()}
		if i > 0 {
			def.DependsOn = []string{string(rune('a' + i - 1))}
		}
		defs = append(defs, def)
	}
	g, err := BuildGraph(defs)
	if err != nil {
		t.Fatalf("BuildGraph() error: %v", err)
	}
	return g
}

// TestResultStoreTransitions verifies the legal transition sequence and that
// illegal jumps are rejected.
func TestResultStoreTransitions(t *testing.T) {
	g := chainGraph(t, 1)
	store := NewResultStore(g)

	// Running before ready is illegal.
	if err := store.MarkRunning("a"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("MarkRunning from pending = %v, want ErrInvalidTransition", err)
	}

	// pending -> ready -> running -> completed.
	if err := store.MarkReady("a"); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := store.MarkRunning("a"); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := store.MarkCompleted("a", 42); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	// Terminal records never change again.
	if err := store.MarkFailed("a", errors.New("late")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("MarkFailed after completed = %v, want ErrInvalidTransition", err)
	}
	if err := store.MarkCancelled("a"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("MarkCancelled after completed = %v, want ErrInvalidTransition", err)
	}

	sub, ok := store.Get("a")
	if !ok {
		t.Fatal("Get(a) missing")
	}
	if sub.Status != SubtaskCompleted || sub.Result != 42 || sub.Attempts != 1 {
		t.Errorf("record = %+v, want completed with result 42 and 1 attempt", sub)
	}
}

// TestResultStoreDoubleClaim verifies that only one caller can move a
// subtask into running.
func TestResultStoreDoubleClaim(t *testing.T) {
	store := NewResultStore(chainGraph(t, 1))

	if err := store.MarkReady("a"); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := store.MarkRunning("a"); err != nil {
		t.Fatalf("first MarkRunning: %v", err)
	}
	if err := store.MarkRunning("a"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second MarkRunning = %v, want ErrInvalidTransition", err)
	}
}

// TestResultStoreSkipRecordsCause verifies skipped subtasks carry the failed
// ancestor's id.
func TestResultStoreSkipRecordsCause(t *testing.T) {
	store := NewResultStore(chainGraph(t, 2))

	mustAdvance(t, store, "a", SubtaskFailed)
	if err := store.MarkSkipped("b", "a"); err != nil {
		t.Fatalf("MarkSkipped: %v", err)
	}

	sub, _ := store.Get("b")
	if sub.Status != SubtaskSkipped || sub.SkippedFor != "a" {
		t.Errorf("record = %+v, want skipped for a", sub)
	}

	// Skipping an already terminal record is rejected.
	if err := store.MarkSkipped("a", "a"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("MarkSkipped on failed = %v, want ErrInvalidTransition", err)
	}
}

// TestResultStoreCancelRemaining verifies only not-yet-started subtasks are
// withdrawn.
func TestResultStoreCancelRemaining(t *testing.T) {
	g, err := BuildGraph([]SubtaskDef{
		{ID: "a", Action: noopAction()},
		{ID: "b", Action: noopAction()},
		{ID: "c", Action: noopAction()},
	})
	if err != nil {
		t.Fatalf("BuildGraph() error: %v", err)
	}
	store := NewResultStore(g)

	mustAdvance(t, store, "a", SubtaskCompleted)
	if err := store.MarkReady("b"); err != nil {
		t.Fatalf("MarkReady(b): %v", err)
	}
	if err := store.MarkRunning("b"); err != nil {
		t.Fatalf("MarkRunning(b): %v", err)
	}

	cancelled := store.CancelRemaining()
	if len(cancelled) != 1 || cancelled[0] != "c" {
		t.Fatalf("CancelRemaining() = %v, want [c]", cancelled)
	}
	if store.Status("a") != SubtaskCompleted {
		t.Errorf("a = %s, want completed", store.Status("a"))
	}
	if store.Status("b") != SubtaskRunning {
		t.Errorf("b = %s, want running (in-flight work is not withdrawn)", store.Status("b"))
	}
	if store.Status("c") != SubtaskCancelled {
		t.Errorf("c = %s, want cancelled", store.Status("c"))
	}
}

// TestResultStoreProgress verifies progress counts completed and skipped
// subtasks and only reaches 1.0 without failures.
func TestResultStoreProgress(t *testing.T) {
	store := NewResultStore(chainGraph(t, 4))

	if p := store.Progress(); p != 0 {
		t.Fatalf("initial Progress() = %v, want 0", p)
	}

	mustAdvance(t, store, "a", SubtaskCompleted)
	if p := store.Progress(); math.Abs(p-0.25) > 1e-9 {
		t.Fatalf("Progress() after 1/4 = %v, want 0.25", p)
	}

	mustAdvance(t, store, "b", SubtaskFailed)
	if p := store.Progress(); math.Abs(p-0.25) > 1e-9 {
		t.Fatalf("Progress() after failure = %v, want 0.25 (failed does not count)", p)
	}

	// Skipped subtasks count toward progress, so a failed chain still
	// converges to a stable fraction below completion semantics.
	if err := store.MarkSkipped("c", "b"); err != nil {
		t.Fatalf("MarkSkipped(c): %v", err)
	}
	if err := store.MarkSkipped("d", "b"); err != nil {
		t.Fatalf("MarkSkipped(d): %v", err)
	}
	if p := store.Progress(); math.Abs(p-0.75) > 1e-9 {
		t.Fatalf("final Progress() = %v, want 0.75", p)
	}
}

// TestResultStoreNoteRetry verifies attempt counting for recovered subtasks.
func TestResultStoreNoteRetry(t *testing.T) {
	store := NewResultStore(chainGraph(t, 1))

	// NoteRetry on a non-running subtask is ignored.
	store.NoteRetry("a")

	if err := store.MarkReady("a"); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if err := store.MarkRunning("a"); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	store.NoteRetry("a")
	if err := store.MarkCompleted("a", nil); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	sub, _ := store.Get("a")
	if sub.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", sub.Attempts)
	}
}
