package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/omarluq/multilogin/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestIDMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login/password", http.NoBody))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))
}

func TestRequestIDMiddleware_Reuses(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestIDMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/login/password", http.NoBody)
	req.Header.Set(HeaderRequestID, "client-chosen")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "client-chosen", seen)
	assert.Equal(t, "client-chosen", rec.Header().Get(HeaderRequestID))
}

func TestLoggingMiddleware_LevelsByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		level  string
		status int
	}{
		{"success", "info", http.StatusOK},
		{"client error", "warn", http.StatusUnauthorized},
		{"server error", "error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			h := LoggingMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodPost, "/login/password", http.NoBody)
			req = req.WithContext(logger.WithContext(req.Context()))
			h.ServeHTTP(httptest.NewRecorder(), req)

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 2)
			last := lines[1]
			assert.Equal(t, tt.level, gjson.Get(last, "level").String())
			assert.Equal(t, int64(tt.status), gjson.Get(last, "status").Int())
			assert.Equal(t, "/login/password", gjson.Get(last, "path").String())
		})
	}
}

func TestLoggingMiddleware_ReadsDebugOptionsPerRequest(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	opts := config.DebugOptions{}
	provider := func() config.DebugOptions {
		mu.Lock()
		defer mu.Unlock()
		return opts
	}

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	h := LoggingMiddleware(provider)(okHandler())

	send := func() {
		req := httptest.NewRequest(http.MethodPost, "/login/password", strings.NewReader("password=hunter2"))
		req = req.WithContext(logger.WithContext(req.Context()))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	send()
	assert.NotContains(t, buf.String(), "body_preview")

	mu.Lock()
	opts = config.DebugOptions{LogRequestBody: true}
	mu.Unlock()

	send()
	assert.Contains(t, buf.String(), "password=REDACTED")
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want string
		in   time.Duration
	}{
		{"0s", 0},
		{"500µs", 500 * time.Microsecond},
		{"12.50ms", 12500 * time.Microsecond},
		{"1.50s", 1500 * time.Millisecond},
		{"2m0s", 2 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

func TestStatusSymbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "✓", statusSymbol(200))
	assert.Equal(t, "⚠", statusSymbol(401))
	assert.Equal(t, "✗", statusSymbol(503))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	h := RecoverMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "api_error", gjson.Get(rec.Body.String(), "error.type").String())
}

func TestConcurrencyLimiter(t *testing.T) {
	t.Parallel()

	l := NewConcurrencyLimiter(2)
	assert.True(t, l.TryAcquire())
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	assert.Equal(t, int64(2), l.CurrentInFlight())

	l.Release()
	assert.True(t, l.TryAcquire())

	l.SetLimit(0)
	assert.True(t, l.TryAcquire())
	assert.Equal(t, int64(0), l.GetLimit())
}

func TestConcurrencyMiddleware_Rejects(t *testing.T) {
	t.Parallel()

	l := NewConcurrencyLimiter(1)
	require.True(t, l.TryAcquire())

	rec := httptest.NewRecorder()
	ConcurrencyMiddleware(l)(okHandler()).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/login/password", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "server_busy", gjson.Get(rec.Body.String(), "error.type").String())

	l.Release()
	rec = httptest.NewRecorder()
	ConcurrencyMiddleware(l)(okHandler()).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/login/password", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), l.CurrentInFlight())
}

func TestMaxBodyBytesMiddleware(t *testing.T) {
	t.Parallel()

	var readErr error
	h := MaxBodyBytesMiddleware(func() int64 { return 4 })(http.HandlerFunc(
		func(_ http.ResponseWriter, r *http.Request) {
			_, readErr = io.ReadAll(r.Body)
		}))

	h.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/login/password", strings.NewReader("too long")))

	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, readErr, &maxErr)
}

func TestMaxBodyBytesMiddleware_Unlimited(t *testing.T) {
	t.Parallel()

	var body []byte
	h := MaxBodyBytesMiddleware(func() int64 { return 0 })(http.HandlerFunc(
		func(_ http.ResponseWriter, r *http.Request) {
			body, _ = io.ReadAll(r.Body)
		}))

	h.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/login/password", strings.NewReader("anything")))
	assert.Equal(t, "anything", string(body))
}
