// package retry implements bounded retries with exponential backoff for
// externally-facing actions.
//
// Every pipeline step that calls an external collaborator runs through
// [Do] or [DoValue]. Errors are classified before each retry: fatal classes
// (authentication, invalid input, malformed responses) fail immediately with
// the error untouched, transient classes (network, rate limit, timeouts)
// are retried until the policy's attempt budget is exhausted.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/desertthunder/tracksync/internal/shared"
)

// Policy configures a retrying execution.
type Policy struct {
	MaxAttempts        int           // total attempts, including the first
	InitialDelay       time.Duration // delay before the second attempt
	BackoffCoefficient float64       // multiplier applied per attempt
	MaxDelay           time.Duration // cap on any single delay
	// NonRetryable classifies an error as fatal. Defaults to [Fatal].
	NonRetryable func(error) bool
}

// ExhaustedError wraps the last failure after all attempts were consumed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do invokes fn under the policy. It returns the number of attempts taken
// (at least 1) and the final error, nil on success. Fatal errors propagate
// untouched after the first failing attempt; exhausted retries return an
// [*ExhaustedError] wrapping the last failure.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error) (int, error) {
	_, attempts, err := DoValue(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return attempts, err
}

// DoValue is [Do] for actions that produce a value.
func DoValue[T any](ctx context.Context, policy Policy, fn func(context.Context) (T, error)) (T, int, error) {
	var zero T

	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.BackoffCoefficient < 1 {
		policy.BackoffCoefficient = 2.0
	}
	fatal := policy.NonRetryable
	if fatal == nil {
		fatal = Fatal
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, backoff(policy, attempt-1)); err != nil {
				return zero, attempt, err
			}
		}

		value, err := fn(ctx)
		if err == nil {
			return value, attempt + 1, nil
		}
		lastErr = err

		if fatal(err) {
			return zero, attempt + 1, err
		}
	}

	return zero, policy.MaxAttempts, &ExhaustedError{Attempts: policy.MaxAttempts, Err: lastErr}
}

// backoff computes the delay after the given zero-based failed attempt:
// InitialDelay * BackoffCoefficient^attempt, capped at MaxDelay.
func backoff(policy Policy, attempt int) time.Duration {
	delay := float64(policy.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= policy.BackoffCoefficient
	}
	d := time.Duration(delay)
	if policy.MaxDelay > 0 && d > policy.MaxDelay {
		d = policy.MaxDelay
	}
	return d
}

// wait sleeps for delay or returns early when the context ends.
func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fatal classifies err as non-retryable.
//
// Fatal: authentication and credential errors, invalid input, missing
// playlists, malformed collaborator responses, and context cancellation.
// Retryable: rate limits, transient API/network failures, timeouts, and
// anything unclassified (the attempt budget bounds the damage).
func Fatal(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrMissingCredentials),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrTrackNotFound),
		errors.Is(err, shared.ErrMalformedResponse):
		return true
	case errors.Is(err, context.Canceled):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		// Step-level timeout; the workflow budget is enforced above us.
		return false
	case errors.Is(err, shared.ErrRateLimited),
		errors.Is(err, shared.ErrServiceUnavailable),
		errors.Is(err, shared.ErrAPIRequest),
		errors.Is(err, shared.ErrTimeout):
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"unauthorized", "forbidden", "invalid_client", "bad request"} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
