// Package recovery provides the default ErrorRecoveryHook: a single retry
// with exponential-backoff delay, gated by a per-action-type circuit breaker
// so that persistently failing action types stop being retried.
package recovery

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/taskfan/taskfan/internal/scheduler"
)

// Strategy rewrites a failed action into the action to retry. Returning
// false declines recovery for this failure.
type Strategy func(action scheduler.Action, execErr error) (scheduler.Action, bool)

// Config tunes retry delay and breaker behavior.
type Config struct {
	InitialInterval     time.Duration // first retry delay (default 100ms)
	MaxInterval         time.Duration // delay ceiling (default 10s)
	Multiplier          float64       // backoff multiplier (default 2.0)
	RandomizationFactor float64       // jitter factor (default 0.5)
	TripAfter           uint32        // consecutive failures per action type before retries stop (default 5)
}

// DefaultConfig returns the default recovery configuration.
func DefaultConfig() Config {
	return Config{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
		TripAfter:           5,
	}
}

// pattern binds an error-message substring to a recovery strategy.
type pattern struct {
	substr   string
	strategy Strategy
}

// Hook implements scheduler.ErrorRecoveryHook. Strategies are registered
// explicitly and owned by the hook; the breaker registry is keyed by action
// type so one flaky action type cannot suppress retries for the others.
type Hook struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	patterns []pattern
}

// NewHook creates a Hook with the given configuration.
func NewHook(cfg Config, logger *slog.Logger) *Hook {
	def := DefaultConfig()
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.RandomizationFactor < 0 {
		cfg.RandomizationFactor = def.RandomizationFactor
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = def.TripAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook{
		cfg:      cfg,
		log:      logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// RegisterPattern binds a strategy to failures whose error message contains
// substr. Patterns are consulted in registration order; the first match
// wins. Failures matching no pattern are retried with the original action.
func (h *Hook) RegisterPattern(substr string, s Strategy) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.patterns = append(h.patterns, pattern{substr: substr, strategy: s})
}

// Recover implements scheduler.ErrorRecoveryHook. It records the failure
// with the action type's breaker, and when the breaker still admits requests
// it waits one backoff interval and returns the action to retry.
func (h *Hook) Recover(ctx context.Context, sub scheduler.Subtask, execErr error) (scheduler.Action, bool) {
	if ctx.Err() != nil {
		return scheduler.Action{}, false
	}

	cb := h.breaker(sub.Action.Type)
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, execErr
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		h.log.Debug("retry suppressed, breaker open",
			"subtask_id", sub.ID,
			"action", sub.Action.Type)
		return scheduler.Action{}, false
	}

	retry, ok := h.rewrite(sub.Action, execErr)
	if !ok {
		return scheduler.Action{}, false
	}

	if !h.wait(ctx, sub.Attempts) {
		return scheduler.Action{}, false
	}

	h.log.Debug("retrying subtask",
		"subtask_id", sub.ID,
		"action", retry.Type,
		"error", execErr)
	return retry, true
}

// rewrite applies the first matching pattern strategy, or retries the
// original action when nothing matches.
func (h *Hook) rewrite(action scheduler.Action, execErr error) (scheduler.Action, bool) {
	h.mu.Lock()
	patterns := append([]pattern(nil), h.patterns...)
	h.mu.Unlock()

	msg := execErr.Error()
	for _, p := range patterns {
		if strings.Contains(msg, p.substr) {
			return p.strategy(action, execErr)
		}
	}
	return action, true
}

// wait sleeps for one exponential-backoff interval, scaled by how many
// attempts the subtask has already made. Returns false if ctx is done first.
func (h *Hook) wait(ctx context.Context, attempts int) bool {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = h.cfg.InitialInterval
	policy.MaxInterval = h.cfg.MaxInterval
	policy.Multiplier = h.cfg.Multiplier
	policy.RandomizationFactor = h.cfg.RandomizationFactor

	delay := policy.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = policy.NextBackOff()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// breaker returns the circuit breaker for an action type, creating it on
// first use. A breaker relaxes on its own through the half-open timeout.
func (h *Hook) breaker(actionType string) *gobreaker.CircuitBreaker {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cb, ok := h.breakers[actionType]; ok {
		return cb
	}

	tripAfter := h.cfg.TripAfter
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        actionType,
		MaxRequests: 3, // test requests admitted while half-open
		Interval:    0, // never clear counts automatically
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			h.log.Info("recovery breaker state change", "action", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// User cancellation is not an action-type failure.
			if err == nil {
				return true
			}
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
	h.breakers[actionType] = cb
	return cb
}
