package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/taskfan/taskfan/internal/scheduler"
)

// ActionTypeDelay pauses for a configured duration.
//
// Params:
//
//	{
//	    "duration_sec": 10,   // delay in seconds
//	    // or
//	    "duration_ms": 5000   // delay in milliseconds
//	}
const ActionTypeDelay = "delay"

// DelayExecutor waits for the configured duration, honoring context
// cancellation.
type DelayExecutor struct{}

// NewDelayExecutor creates a DelayExecutor.
func NewDelayExecutor() *DelayExecutor {
	return &DelayExecutor{}
}

// Execute waits for the configured duration.
func (e *DelayExecutor) Execute(ctx context.Context, action scheduler.Action) (any, error) {
	duration, err := parseDelayDuration(action)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return map[string]any{"duration_ms": duration.Milliseconds()}, nil
	}
}

func parseDelayDuration(action scheduler.Action) (time.Duration, error) {
	if sec, ok := intParam(action, "duration_sec"); ok && sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}
	if ms, ok := intParam(action, "duration_ms"); ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("%w: %s: duration_sec or duration_ms required",
		ErrBadParams, ActionTypeDelay)
}
