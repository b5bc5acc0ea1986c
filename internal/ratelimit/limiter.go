// Package ratelimit throttles login attempts.
//
// ClientLimiter keeps one token bucket (golang.org/x/time/rate) per client
// key, usually the remote address. Buckets live in a bounded ristretto cache
// and expire after an idle period, so a flood of distinct addresses cannot
// grow memory without limit.
//
//	limiter, err := ratelimit.NewClientLimiter(cfg.RateLimit)
//	if err := limiter.Check(clientIP); err != nil {
//		return err // *LimitedError, matches ErrRateLimitExceeded
//	}
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/time/rate"

	"github.com/omarluq/multilogin/internal/config"
)

// ErrRateLimitExceeded is returned when a client has no attempts left.
var ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

// LimitedError reports which key was throttled and when it may retry.
type LimitedError struct {
	Key   string
	Delay time.Duration
}

// Error implements the error interface.
func (e *LimitedError) Error() string {
	return fmt.Sprintf("ratelimit: rate limit exceeded for %s, retry in %s", e.Key, e.Delay.Round(time.Millisecond))
}

// Is matches ErrRateLimitExceeded.
func (e *LimitedError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// RetryAfter returns how long the client should wait.
func (e *LimitedError) RetryAfter() time.Duration {
	return e.Delay
}

// ClientLimiter is a set of per-key token buckets. Safe for concurrent use.
type ClientLimiter struct {
	buckets *ristretto.Cache[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	mu      sync.Mutex
}

// NewClientLimiter creates a limiter from the rate_limit section.
func NewClientLimiter(cfg config.RateLimitConfig) (*ClientLimiter, error) {
	maxClients := cfg.GetMaxTrackedClients()
	buckets, err := ristretto.NewCache(&ristretto.Config[string, *rate.Limiter]{
		NumCounters: maxClients * 10,
		MaxCost:     maxClients,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: create bucket cache: %w", err)
	}

	return &ClientLimiter{
		buckets: buckets,
		limit:   rate.Limit(float64(cfg.GetRequestsPerMinute()) / 60.0),
		burst:   cfg.GetBurst(),
		ttl:     cfg.GetIdleTTL(),
	}, nil
}

// Check consumes one attempt for key. It returns a *LimitedError when the
// bucket is empty; the attempt is then not charged.
func (l *ClientLimiter) Check(key string) error {
	bucket := l.bucket(key)
	res := bucket.Reserve()
	if !res.OK() {
		return &LimitedError{Key: key, Delay: time.Minute}
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return &LimitedError{Key: key, Delay: delay}
	}
	return nil
}

// bucket returns the key's limiter, creating it on first use. Creation is
// serialised so concurrent first attempts share one bucket.
func (l *ClientLimiter) bucket(key string) *rate.Limiter {
	if b, ok := l.buckets.Get(key); ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	b := rate.NewLimiter(l.limit, l.burst)
	if l.buckets.SetWithTTL(key, b, 1, l.ttl) {
		l.buckets.Wait()
	}
	return b
}

// Close releases the bucket cache.
func (l *ClientLimiter) Close() {
	l.buckets.Close()
}
