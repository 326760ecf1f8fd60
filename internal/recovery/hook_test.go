package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskfan/taskfan/internal/scheduler"
)

func fastConfig() Config {
	return Config{
		InitialInterval:     time.Millisecond,
		MaxInterval:         2 * time.Millisecond,
		Multiplier:          1.1,
		RandomizationFactor: 0,
		TripAfter:           5,
	}
}

func failedSubtask(actionType string) scheduler.Subtask {
	return scheduler.Subtask{
		ID:       "s1",
		Action:   scheduler.Action{Type: actionType, Params: map[string]any{"k": "v"}},
		Attempts: 1,
	}
}

// TestHookRetriesOriginalAction verifies an unmatched failure retries the
// original action after the backoff delay.
func TestHookRetriesOriginalAction(t *testing.T) {
	hook := NewHook(fastConfig(), nil)

	retry, ok := hook.Recover(context.Background(), failedSubtask("http"), errors.New("connection reset"))
	if !ok {
		t.Fatal("Recover() declined, want retry")
	}
	if retry.Type != "http" {
		t.Errorf("retry action type = %q, want original http", retry.Type)
	}
}

// TestHookPatternStrategy verifies a matching pattern strategy rewrites the
// retried action, and first registration wins.
func TestHookPatternStrategy(t *testing.T) {
	hook := NewHook(fastConfig(), nil)
	hook.RegisterPattern("timeout", func(action scheduler.Action, _ error) (scheduler.Action, bool) {
		action.Params = map[string]any{"timeout_sec": 60}
		return action, true
	})
	hook.RegisterPattern("time", func(action scheduler.Action, _ error) (scheduler.Action, bool) {
		return scheduler.Action{}, false
	})

	retry, ok := hook.Recover(context.Background(), failedSubtask("http"), errors.New("request timeout"))
	if !ok {
		t.Fatal("Recover() declined, want retry via pattern")
	}
	if retry.Params["timeout_sec"] != 60 {
		t.Errorf("retry params = %v, want rewritten timeout", retry.Params)
	}
}

// TestHookPatternDecline verifies a strategy returning false propagates the
// failure.
func TestHookPatternDecline(t *testing.T) {
	hook := NewHook(fastConfig(), nil)
	hook.RegisterPattern("fatal", func(scheduler.Action, error) (scheduler.Action, bool) {
		return scheduler.Action{}, false
	})

	if _, ok := hook.Recover(context.Background(), failedSubtask("command"), errors.New("fatal: corrupt state")); ok {
		t.Fatal("Recover() retried a declined failure")
	}
}

// TestHookBreakerSuppressesRetries verifies retries for one action type stop
// after the configured run of consecutive failures, without affecting other
// action types.
func TestHookBreakerSuppressesRetries(t *testing.T) {
	cfg := fastConfig()
	cfg.TripAfter = 2
	hook := NewHook(cfg, nil)

	execErr := errors.New("boom")

	// The first two failures still get retries; recording the second trips
	// the breaker.
	for i := 0; i < 2; i++ {
		if _, ok := hook.Recover(context.Background(), failedSubtask("http"), execErr); !ok {
			t.Fatalf("Recover() #%d declined before the breaker tripped", i+1)
		}
	}

	if _, ok := hook.Recover(context.Background(), failedSubtask("http"), execErr); ok {
		t.Fatal("Recover() retried with an open breaker")
	}

	// A different action type has its own breaker.
	if _, ok := hook.Recover(context.Background(), failedSubtask("command"), execErr); !ok {
		t.Fatal("Recover() declined for an unrelated action type")
	}
}

// TestHookIgnoresCancellation verifies cancellation errors neither retry nor
// count against the breaker.
func TestHookIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hook := NewHook(fastConfig(), nil)
	if _, ok := hook.Recover(ctx, failedSubtask("http"), context.Canceled); ok {
		t.Fatal("Recover() retried after cancellation")
	}
}

// TestHookWaitHonorsContext verifies the backoff wait aborts when the
// context is cancelled mid-delay.
func TestHookWaitHonorsContext(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialInterval = time.Minute
	cfg.MaxInterval = time.Minute
	hook := NewHook(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if _, ok := hook.Recover(ctx, failedSubtask("http"), errors.New("boom")); ok {
		t.Fatal("Recover() returned retry despite cancelled wait")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Recover() waited %v, want prompt abort", elapsed)
	}
}
