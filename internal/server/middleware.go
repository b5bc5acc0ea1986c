package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/handler"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// DebugOptionsProvider returns current debug options for live-config logging.
type DebugOptionsProvider func() config.DebugOptions

// RequestIDMiddleware reuses or generates X-Request-ID and puts it, with a
// request-scoped logger, into the request context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := AddRequestID(request.Context(), request.Header.Get(HeaderRequestID))
			writer.Header().Set(HeaderRequestID, GetRequestID(ctx))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func withRequestFields(ctx context.Context, r *http.Request, shortID string) zerolog.Context {
	return zerolog.Ctx(ctx).With().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("req_id", shortID)
}

// LoggingMiddleware logs a start and a completion line per request, reading
// debug options live so a reload can turn body logging on or off.
func LoggingMiddleware(provider DebugOptionsProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			var debugOpts config.DebugOptions
			if provider != nil {
				debugOpts = provider()
			}

			start := time.Now()
			LogRequestDetails(request.Context(), request, debugOpts)

			wrapped := &responseWriter{ResponseWriter: writer, statusCode: http.StatusOK}

			shortID := GetRequestID(request.Context())
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}

			logger := withRequestFields(request.Context(), request, shortID).Logger()
			logger.Info().Msgf("%s %s", request.Method, request.URL.Path)

			next.ServeHTTP(wrapped, request)

			logRequestCompletion(request.Context(), request, wrapped.statusCode, time.Since(start), shortID)
		})
	}
}

func logRequestCompletion(ctx context.Context, request *http.Request, status int, duration time.Duration, shortID string) {
	durationStr := formatDuration(duration)
	logger := withRequestFields(ctx, request, shortID).
		Int("status", status).
		Str("duration", durationStr).
		Logger()

	msg := statusSymbol(status) + " " + http.StatusText(status) + " (" + durationStr + ")"
	switch {
	case status >= 500:
		logger.Error().Msg(msg)
	case status >= 400:
		logger.Warn().Msg(msg)
	default:
		logger.Info().Msg(msg)
	}
}

func statusSymbol(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "✗"
	case statusCode >= 400:
		return "⚠"
	default:
		return "✓"
	}
}

// formatDuration formats duration with dynamic units: µs, ms, s.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	duration = duration.Round(time.Microsecond)
	switch {
	case duration < time.Millisecond:
		return fmt.Sprintf("%dµs", duration.Microseconds())
	case duration < time.Second:
		return fmt.Sprintf("%.2fms", float64(duration)/float64(time.Millisecond))
	case duration < time.Minute:
		return fmt.Sprintf("%.2fs", duration.Seconds())
	default:
		return duration.Truncate(time.Second).String()
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(data)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RecoverMiddleware turns a panic outside the login pipeline into a 500.
func RecoverMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					zerolog.Ctx(request.Context()).Error().
						Interface("panic", p).
						Bytes("stack", debug.Stack()).
						Msg("handler panicked")
					handler.WriteError(writer, http.StatusInternalServerError, handler.TypeAPI, "internal error")
				}
			}()
			next.ServeHTTP(writer, request)
		})
	}
}

// ConcurrencyLimiter enforces a global maximum number of in-flight requests.
// The limit can be changed at runtime; 0 or negative means unlimited.
type ConcurrencyLimiter struct {
	limit   atomic.Int64
	current atomic.Int64
}

// NewConcurrencyLimiter creates a limiter with the given maximum.
func NewConcurrencyLimiter(maxLimit int64) *ConcurrencyLimiter {
	limiter := &ConcurrencyLimiter{}
	limiter.limit.Store(maxLimit)
	return limiter
}

// SetLimit updates the limit for hot-reload support.
func (l *ConcurrencyLimiter) SetLimit(maxLimit int64) {
	l.limit.Store(maxLimit)
}

// GetLimit returns the current configured limit.
func (l *ConcurrencyLimiter) GetLimit() int64 {
	return l.limit.Load()
}

// CurrentInFlight returns the number of in-flight requests.
func (l *ConcurrencyLimiter) CurrentInFlight() int64 {
	return l.current.Load()
}

// TryAcquire takes a slot if one is free.
func (l *ConcurrencyLimiter) TryAcquire() bool {
	limit := l.limit.Load()
	if limit <= 0 {
		l.current.Add(1)
		return true
	}

	for {
		current := l.current.Load()
		if current >= limit {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release frees a slot taken by TryAcquire.
func (l *ConcurrencyLimiter) Release() {
	l.current.Add(-1)
}

// ConcurrencyMiddleware answers 503 when the limiter is full.
func ConcurrencyMiddleware(limiter *ConcurrencyLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !limiter.TryAcquire() {
				zerolog.Ctx(request.Context()).Warn().
					Int64("limit", limiter.GetLimit()).
					Int64("current", limiter.CurrentInFlight()).
					Msg("request rejected: concurrency limit reached")
				handler.WriteError(writer, http.StatusServiceUnavailable, "server_busy",
					"server is at maximum capacity, please retry later")
				return
			}
			defer limiter.Release()
			next.ServeHTTP(writer, request)
		})
	}
}

// MaxBodyBytesMiddleware caps request bodies with http.MaxBytesReader.
// limitProvider is read per request so the cap follows config reloads.
func MaxBodyBytesMiddleware(limitProvider func() int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if limit := limitProvider(); limit > 0 && request.Body != nil {
				request.Body = http.MaxBytesReader(writer, request.Body, limit)
			}
			next.ServeHTTP(writer, request)
		})
	}
}
