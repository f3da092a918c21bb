package calendar

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for the gateway's failure taxonomy. Callers distinguish
// these with errors.Is; everything else is either a TransientError (retried
// internally) or an unexpected failure passed through unchanged.
var (
	// ErrConflict indicates the remote event changed since it was last read
	// (version token mismatch). Never retried automatically.
	ErrConflict = errors.New("calendar: event version conflict")

	// ErrAuth indicates the stored credential was rejected. Non-retryable;
	// requires user re-authorization.
	ErrAuth = errors.New("calendar: authorization failed")

	// ErrNotFound indicates the referenced event no longer exists.
	ErrNotFound = errors.New("calendar: event not found")

	// ErrStopIteration stops ForeachEvent early without error.
	ErrStopIteration = errors.New("calendar: stop iteration")
)

// TransientError wraps a retryable failure (network, rate limit, server
// error, timeout). The gateway retries these with backoff before surfacing.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("calendar: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classify maps raw API client errors onto the gateway taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	// A cancelled turn is not a service failure; pass through untouched.
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case apiErr.Code == 403:
			// 403 covers both real permission failures and rate limiting;
			// only the latter is retryable.
			for _, item := range apiErr.Errors {
				switch item.Reason {
				case "rateLimitExceeded", "userRateLimitExceeded":
					return &TransientError{Err: err}
				}
			}
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case apiErr.Code == 404:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case apiErr.Code == 408, apiErr.Code == 429, apiErr.Code >= 500:
			return &TransientError{Err: err}
		default:
			return err
		}
	}

	// Non-HTTP failures from the transport (DNS, connection reset) are
	// retryable by policy.
	return &TransientError{Err: err}
}
