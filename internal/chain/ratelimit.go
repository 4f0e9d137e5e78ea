package chain

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter provides per-endpoint rate limiting using token bucket algorithm.
type RateLimiter struct {
	limiters   map[string]*rate.Limiter
	mu         sync.RWMutex
	rateLimit  rate.Limit
	burstLimit int
}

// NewRateLimiter creates a new rate limiter with the specified rate and burst.
// rate is requests per second, burst is the maximum burst size.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
	}
}

// DefaultRateLimiter returns a rate limiter sized for public BSC endpoints.
// A snapshot refresh issues a dozen calls at once, so the burst covers one
// full batch.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(10, 16)
}

// Allow checks if a request to the endpoint is allowed.
func (r *RateLimiter) Allow(endpoint string) bool {
	return r.limiter(endpoint).Allow()
}

// Wait blocks until a request to the endpoint is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	return r.limiter(endpoint).Wait(ctx)
}

// Endpoints returns the number of endpoints seen so far.
func (r *RateLimiter) Endpoints() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}

func (r *RateLimiter) limiter(endpoint string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[endpoint]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, exists = r.limiters[endpoint]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(r.rateLimit, r.burstLimit)
	r.limiters[endpoint] = limiter
	return limiter
}

// Guarded runs operation under the endpoint's limiter with the retry policy.
// Every attempt, including retries, waits for a token. A nil limiter only
// applies the retry policy.
func Guarded[T any](ctx context.Context, rl *RateLimiter, endpoint string, cfg RetryConfig, operation func(context.Context) (T, error)) (T, error) {
	return RetryWithConfig(ctx, cfg, func(ctx context.Context) (T, error) {
		if rl != nil {
			if err := rl.Wait(ctx, endpoint); err != nil {
				var zero T
				return zero, err
			}
		}
		return operation(ctx)
	})
}
