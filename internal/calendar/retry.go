package calendar

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy centralizes backoff behavior for every gateway call, so retry
// logic lives in one place instead of scattered per call site.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries uint64

	// Timeout bounds each individual call, including its retries' attempts
	// individually (each attempt gets a fresh deadline).
	Timeout time.Duration

	// InitialInterval seeds the exponential backoff between attempts.
	InitialInterval time.Duration
}

// DefaultRetryPolicy matches the documented policy: up to 3 retries with
// exponential backoff, 30s per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		Timeout:         30 * time.Second,
		InitialInterval: 500 * time.Millisecond,
	}
}

// Do runs op, retrying transient failures with exponential backoff. Each
// attempt receives a context bounded by the policy timeout; a timed-out
// attempt counts as transient. Non-transient errors abort immediately.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}

	attempt := func() error {
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		err := classify(op(attemptCtx))
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	return backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxRetries), ctx))
}
