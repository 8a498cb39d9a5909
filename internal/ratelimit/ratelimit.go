// Package ratelimit throttles command spawns per job with token buckets.
// Throttling delays work; it never drops it.
package ratelimit

import (
	"context"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter holds one token bucket per key. Keys without a
// configured limit are not throttled.
type KeyedRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a limiter with no keys configured.
func New() *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// Configure sets the rate for key in events per second. The burst is the
// rate rounded up, at least 1. A rate of zero or less removes the limit.
func (krl *KeyedRateLimiter) Configure(key string, rps float64) {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	if rps <= 0 {
		delete(krl.limiters, key)
		return
	}

	burst := int(math.Ceil(rps))
	krl.limiters[key] = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
}

// Limited reports whether key has a limit.
func (krl *KeyedRateLimiter) Limited(key string) bool {
	krl.mu.RLock()
	defer krl.mu.RUnlock()
	_, ok := krl.limiters[key]
	return ok
}

// Allow reports whether an event for key may happen now, consuming a token
// if so. Unlimited keys are always allowed.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	limiter := krl.get(key)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

// Wait blocks until an event for key is allowed or ctx is done.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	limiter := krl.get(key)
	if limiter == nil {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

func (krl *KeyedRateLimiter) get(key string) *rate.Limiter {
	krl.mu.RLock()
	defer krl.mu.RUnlock()
	return krl.limiters[key]
}
