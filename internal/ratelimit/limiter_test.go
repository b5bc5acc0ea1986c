package ratelimit_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/ratelimit"
)

func newLimiter(t *testing.T, rpm, burst int) *ratelimit.ClientLimiter {
	t.Helper()
	l, err := ratelimit.NewClientLimiter(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: rpm,
		Burst:             burst,
		MaxTrackedClients: 100,
	})
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestClientLimiterBurstThenLimited(t *testing.T) {
	t.Parallel()

	l := newLimiter(t, 60, 3)
	for i := range 3 {
		require.NoError(t, l.Check("10.0.0.1"), "attempt %d", i)
	}

	err := l.Check("10.0.0.1")
	require.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)

	var limited *ratelimit.LimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, "10.0.0.1", limited.Key)
	assert.Greater(t, limited.RetryAfter(), time.Duration(0))
	assert.LessOrEqual(t, limited.RetryAfter(), time.Second)
}

func TestClientLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := newLimiter(t, 60, 1)
	require.NoError(t, l.Check("a"))
	require.Error(t, l.Check("a"))
	assert.NoError(t, l.Check("b"))
}

func TestClientLimiterConcurrentFirstAttempts(t *testing.T) {
	t.Parallel()

	l := newLimiter(t, 1, 5)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("shared") == nil {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), allowed.Load())
}

func TestLimitedErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ratelimit.LimitedError{Key: "1.2.3.4", Delay: 1500 * time.Millisecond}
	assert.Equal(t, "ratelimit: rate limit exceeded for 1.2.3.4, retry in 1.5s", err.Error())
}
