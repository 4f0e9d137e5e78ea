package chain_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uwealth/internal/chain"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()
	rl := chain.NewRateLimiter(10, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow("rpc"), "should allow request %d in burst", i)
	}
	assert.False(t, rl.Allow("rpc"), "should deny request after burst exhausted")
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Parallel()
	rl := chain.NewRateLimiter(100, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, rl.Wait(ctx, "rpc"))
	start := time.Now()
	require.NoError(t, rl.Wait(ctx, "rpc"))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestRateLimiter_SeparateEndpoints(t *testing.T) {
	t.Parallel()
	rl := chain.NewRateLimiter(10, 2)

	assert.True(t, rl.Allow("primary"))
	assert.True(t, rl.Allow("primary"))
	assert.False(t, rl.Allow("primary"))

	assert.True(t, rl.Allow("fallback"))
	assert.Equal(t, 2, rl.Endpoints())
}

func TestRateLimiter_Concurrent(t *testing.T) {
	t.Parallel()
	rl := chain.DefaultRateLimiter()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rl.Allow("rpc")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, rl.Endpoints())
}

func TestGuarded(t *testing.T) {
	t.Parallel()

	t.Run("retries through limiter", func(t *testing.T) {
		t.Parallel()
		rl := chain.NewRateLimiter(1000, 10)
		var calls atomic.Int32

		got, err := chain.Guarded(context.Background(), rl, "rpc", fastRetry(), func(context.Context) (string, error) {
			if calls.Add(1) == 1 {
				return "", chain.ErrTimeout
			}
			return "done", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "done", got)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("nil limiter", func(t *testing.T) {
		t.Parallel()
		got, err := chain.Guarded(context.Background(), nil, "rpc", fastRetry(), func(context.Context) (int, error) {
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, got)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := chain.Guarded(ctx, chain.NewRateLimiter(1, 1), "rpc", fastRetry(), func(context.Context) (int, error) {
			return 1, nil
		})
		require.Error(t, err)
	})
}
