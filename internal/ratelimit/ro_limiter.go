package ratelimit

import (
	"time"

	"github.com/samber/ro"
	roratelimit "github.com/samber/ro/plugins/ratelimit/native"
)

// DefaultInterval is the default stream rate limit interval.
const DefaultInterval = time.Minute

func normalizeInterval(interval time.Duration) time.Duration {
	if interval <= 0 {
		return DefaultInterval
	}
	return interval
}

// Limit caps an observable stream at count items per interval for each key
// returned by keyGetter. An empty key puts every item in one bucket.
//
//	limited := ratelimit.Limit(events, 60, time.Minute, func(e audit.Event) string {
//		return e.RemoteAddr
//	})
func Limit[T any](
	source ro.Observable[T],
	count int64,
	interval time.Duration,
	keyGetter func(T) string,
) ro.Observable[T] {
	return ro.Pipe1(source, NewLimitOperator(count, interval, keyGetter))
}

// NewLimitOperator creates a reusable keyed rate limit operator.
func NewLimitOperator[T any](
	count int64,
	interval time.Duration,
	keyGetter func(T) string,
) func(ro.Observable[T]) ro.Observable[T] {
	return roratelimit.NewRateLimiter[T](count, normalizeInterval(interval), keyGetter)
}
