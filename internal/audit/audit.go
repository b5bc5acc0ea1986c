// Package audit streams login outcomes to the structured log.
//
// Endpoints hand events to a Stream without blocking. The stream is a
// samber/ro pipeline over a buffered channel, capped per remote address so
// a credential-stuffing burst cannot flood the log:
//
//	events -> ro.FromChannel -> ratelimit.Limit(by remote addr) -> zerolog
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/ro"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/ratelimit"
)

// Outcomes of a login attempt.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// closeTimeout bounds how long Close waits for the stream to drain.
const closeTimeout = 2 * time.Second

// Event is one login attempt. It never carries parameter values.
type Event struct {
	Time       time.Time
	Method     string
	ClientType string
	RemoteAddr string
	RequestID  string
	Outcome    string
	ErrorType  string
	Duration   time.Duration
}

// Recorder accepts audit events. Record must not block.
type Recorder interface {
	Record(e Event)
}

// Stream is the Recorder backed by a rate limited ro pipeline.
type Stream struct {
	events  chan Event
	done    chan struct{}
	sub     ro.Subscription
	dropped atomic.Int64
	mu      sync.RWMutex
	closed  bool
}

// NewStream starts the audit pipeline. Events are logged through logger
// until ctx is cancelled or Close is called.
func NewStream(ctx context.Context, cfg config.AuditConfig, logger *zerolog.Logger) *Stream {
	s := &Stream{
		events: make(chan Event, cfg.GetBufferSize()),
		done:   make(chan struct{}),
	}

	limited := ratelimit.Limit(ro.FromChannel(s.events), cfg.GetEventsPerMinute(), time.Minute,
		func(e Event) string { return e.RemoteAddr })

	var once sync.Once
	finish := func() { once.Do(func() { close(s.done) }) }

	s.sub = limited.SubscribeWithContext(ctx, ro.NewObserverWithContext(
		func(_ context.Context, e Event) {
			logEvent(logger, e)
		},
		func(_ context.Context, err error) {
			logger.Error().Err(err).Msg("audit stream failed")
			finish()
		},
		func(_ context.Context) {
			finish()
		},
	))

	return s
}

func logEvent(logger *zerolog.Logger, e Event) {
	event := logger.Info()
	if e.Outcome != OutcomeSuccess {
		event = logger.Warn()
	}
	event = event.
		Str("audit", "login").
		Time("at", e.Time).
		Str("login_method", e.Method).
		Str("outcome", e.Outcome).
		Str("remote_addr", e.RemoteAddr).
		Dur("duration", e.Duration)
	if e.ClientType != "" {
		event = event.Str("client_type", e.ClientType)
	}
	if e.RequestID != "" {
		event = event.Str("request_id", e.RequestID)
	}
	if e.ErrorType != "" {
		event = event.Str("error_type", e.ErrorType)
	}
	event.Msg("login attempt")
}

// Record queues e. When the buffer is full or the stream is closed the
// event is dropped and counted.
func (s *Stream) Record(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.events <- e:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of events that were not queued.
func (s *Stream) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting events and waits briefly for queued ones to be logged.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(closeTimeout):
		s.sub.Unsubscribe()
	}
}

var _ Recorder = (*Stream)(nil)
