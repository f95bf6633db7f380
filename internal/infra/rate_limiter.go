package infra

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
// Thread-safe and suitable for concurrent API calls.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter.
// maxRequests: maximum burst size
// perSecond: refill rate (requests per second)
func NewRateLimiter(maxRequests int, perSecond float64) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	return &RateLimiter{
		tokens:     float64(maxRequests),
		maxTokens:  float64(maxRequests),
		refillRate: perSecond,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
// Returns immediately if a token is available.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		// Time until the next whole token.
		waitTime := time.Duration((1 - r.tokens) / r.refillRate * float64(time.Second))
		r.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire attempts to acquire a token without blocking.
// Returns true if a token was acquired, false otherwise.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// refill adds tokens based on elapsed time.
// Must be called with mutex held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.tokens += elapsed * r.refillRate

	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	r.lastRefill = now
}

// EndpointLimiters groups the buckets a broker client needs per endpoint class.
type EndpointLimiters struct {
	Order   *RateLimiter
	Account *RateLimiter
	Market  *RateLimiter
}

// NewBinanceLimiters returns conservative limits to avoid IP bans.
// Order and account: 10 req/s, burst 5. Market data: 20 req/s, burst 10.
func NewBinanceLimiters() EndpointLimiters {
	return EndpointLimiters{
		Order:   NewRateLimiter(5, 10),
		Account: NewRateLimiter(5, 10),
		Market:  NewRateLimiter(10, 20),
	}
}

// NewSmartAPILimiters follows the published SmartAPI quotas.
// Orders: 10 req/s. Positions: 1 req/s. LTP: 10 req/s.
func NewSmartAPILimiters() EndpointLimiters {
	return EndpointLimiters{
		Order:   NewRateLimiter(10, 10),
		Account: NewRateLimiter(1, 1),
		Market:  NewRateLimiter(10, 10),
	}
}
