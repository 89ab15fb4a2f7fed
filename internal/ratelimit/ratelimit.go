// Package ratelimit paces page navigations. The marketplace tolerates slow,
// jittered traffic; workers call Wait before every navigation and report
// outcomes so the adaptive limiter can back off when captures start failing.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// SimpleRateLimiter enforces a jittered minimum gap between navigations.
type SimpleRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
	jitter     bool
}

func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   true,
	}
}

func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.lastAction)
	delay := r.nextDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *SimpleRateLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
}

func (r *SimpleRateLimiter) nextDelay() time.Duration {
	if !r.jitter || r.maxDelay <= r.minDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	return r.minDelay + time.Duration(rand.Int63n(int64(delta)))
}

// Adaptive tuning: back off after a streak of failed captures, creep back
// toward the configured floor after a streak of clean ones.
const (
	backoffStreak  = 3
	recoveryStreak = 5
	backoffFactor  = 1.5
	floorDelay     = 1 * time.Second
	ceilingMin     = 60 * time.Second
	ceilingMax     = 120 * time.Second
)

// AdaptiveRateLimiter widens the navigation gap when the site starts
// refusing captures and narrows it again once things look healthy.
type AdaptiveRateLimiter struct {
	*SimpleRateLimiter
	errorCount   int
	successCount int
}

func NewAdaptiveRateLimiter(minDelay, maxDelay time.Duration) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		SimpleRateLimiter: NewSimpleRateLimiter(minDelay, maxDelay),
	}
}

func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount >= recoveryStreak {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < floorDelay {
			newMin = floorDelay
		}
		a.minDelay = newMin
		a.successCount = 0
	}
}

func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= backoffStreak {
		newMin := time.Duration(float64(a.minDelay) * backoffFactor)
		newMax := time.Duration(float64(a.maxDelay) * backoffFactor)

		if newMin > ceilingMin {
			newMin = ceilingMin
		}
		if newMax > ceilingMax {
			newMax = ceilingMax
		}

		a.minDelay = newMin
		a.maxDelay = newMax
		a.errorCount = 0
	}
}

// TokenBucketRateLimiter caps how many captures may start per refill window.
// The HTTP API uses it so a burst of requests cannot stack up browser work.
type TokenBucketRateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucketRateLimiter(maxTokens int, refillRate time.Duration) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (t *TokenBucketRateLimiter) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refill()

	for t.tokens <= 0 {
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			t.mu.Lock()
			return ctx.Err()
		case <-time.After(t.refillRate):
		}

		t.mu.Lock()
		t.refill()
	}

	t.tokens--
	return nil
}

func (t *TokenBucketRateLimiter) refill() {
	elapsed := time.Since(t.lastRefill)
	tokensToAdd := int(elapsed / t.refillRate)

	if tokensToAdd > 0 {
		t.tokens += tokensToAdd
		if t.tokens > t.maxTokens {
			t.tokens = t.maxTokens
		}
		t.lastRefill = time.Now()
	}
}

// SetDelay reinterprets min as the refill window; the bucket has no jitter.
func (t *TokenBucketRateLimiter) SetDelay(min, _ time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refillRate = min
}
