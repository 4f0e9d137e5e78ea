package chain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uwealth/internal/chain"
)

var errNonRetryable = errors.New("execution reverted")

func fastRetry() chain.RetryConfig {
	return chain.RetryConfig{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryWithConfig_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()
	attempts := 0
	result, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithConfig_SuccessAfterRetry(t *testing.T) {
	t.Parallel()
	attempts := 0
	result, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, chain.WrapRetryable(errors.New("connection reset")) //nolint:err113 // test error
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithConfig_NonRetryable(t *testing.T) {
	t.Parallel()
	attempts := 0
	_, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "", errNonRetryable
	})

	require.ErrorIs(t, err, errNonRetryable)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithConfig_MaxAttempts(t *testing.T) {
	t.Parallel()
	attempts := 0
	_, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "", chain.ErrRateLimited
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrRateLimited)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, 4, attempts)
}

func TestRetryWithConfig_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := chain.RetryWithConfig(ctx, chain.RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour},
		func(context.Context) (string, error) {
			attempts++
			return "", chain.ErrTimeout
		})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.False(t, chain.IsRetryable(nil))
	assert.False(t, chain.IsRetryable(errNonRetryable))
	assert.True(t, chain.IsRetryable(chain.ErrRetryable))
	assert.True(t, chain.IsRetryable(chain.ErrTimeout))
	assert.True(t, chain.IsRetryable(chain.ErrRateLimited))
	assert.True(t, chain.IsRetryable(context.DeadlineExceeded))
	assert.True(t, chain.IsRetryable(chain.WrapRetryable(errNonRetryable)))
	assert.NoError(t, chain.WrapRetryable(nil))
}

func TestReadRetryConfig(t *testing.T) {
	t.Parallel()
	cfg := chain.ReadRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.MaxDelay)
	assert.LessOrEqual(t, cfg.Backoff(10), time.Second)
}
