// Package retry runs an operation a bounded number of times with a wait between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt asked for a retry
var ErrExhausted = errors.New("max retries exceeded")

// DefaultMaxAttempts is the attempt ceiling used when none is configured
const DefaultMaxAttempts = 3

// SleepFunc waits for d or until the context is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy controls how many times an operation is attempted
type Policy struct {
	MaxAttempts int
	Sleep       SleepFunc
}

// NewPolicy creates a policy that sleeps on the wall clock
func NewPolicy(maxAttempts int) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		Sleep:       contextSleep,
	}
}

// retryable marks an attempt error that should be retried after a wait
type retryable struct {
	err  error
	wait time.Duration
}

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

// After marks err as retryable once wait has elapsed
func After(wait time.Duration, err error) error {
	if err == nil {
		err = errors.New("retry requested")
	}
	return &retryable{err: err, wait: wait}
}

// Linear returns unit*attempt, the wait used between server error retries
func Linear(unit time.Duration, attempt int) time.Duration {
	return unit * time.Duration(attempt)
}

// Do calls fn with a 1-based attempt number until it returns nil or a
// non-retryable error. When the ceiling is reached the last error is wrapped
// in ErrExhausted.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}

		var r *retryable
		if !errors.As(err, &r) {
			return err
		}
		lastErr = r.err

		if attempt == p.MaxAttempts {
			break
		}
		if err := p.Sleep(ctx, r.wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
