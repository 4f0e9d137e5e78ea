package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Transport errors a read may be retried after.
var (
	ErrRetryable = &uwerr.UWealthError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: uwerr.ExitNetwork,
	}

	ErrTimeout = &uwerr.UWealthError{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: uwerr.ExitNetwork,
	}

	ErrRateLimited = &uwerr.UWealthError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: uwerr.ExitNetwork,
	}
)

// RetryConfig is a capped exponential backoff with jitter. Transactions are
// never retried; only node reads go through it.
type RetryConfig struct {
	MaxAttempts int           // attempts including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // cap on any single delay
}

// ReadRetryConfig returns the policy for contract view calls.
// A refresh keeps stale values on failure, so reads give up quickly.
func ReadRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    time.Second,
	}
}

// Backoff returns the wait after the given zero-based attempt: the doubled
// base delay capped at MaxDelay, jittered into its upper half.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	delay := c.BaseDelay
	for i := 0; i < attempt && delay < c.MaxDelay; i++ {
		delay *= 2
	}
	delay = min(delay, c.MaxDelay)
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + rand.N(half) //nolint:gosec // G404: Jitter does not require cryptographic randomness
}

// RetryWithConfig runs operation until it succeeds, fails with an error
// IsRetryable rejects, or the attempts run out.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func(context.Context) (T, error)) (T, error) {
	attempts := max(cfg.MaxAttempts, 1)

	var (
		result T
		err    error
	)
	for attempt := range attempts {
		if result, err = operation(ctx); err == nil {
			return result, nil
		}
		if !IsRetryable(err) {
			return result, err
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(cfg.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
}

// IsRetryable reports whether err is a transport failure rather than an
// answer from the node.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrRetryable), errors.Is(err, ErrTimeout),
		errors.Is(err, ErrRateLimited), errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// WrapRetryable marks err as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
