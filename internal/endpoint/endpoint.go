// Package endpoint serves one resolved login method over HTTP.
//
// Each request runs the same pipeline:
//
//	rate limit -> extract -> resolve client type -> token -> dispatch -> success | failure
//
// Every per-request error, including a panicking verifier or handler, ends
// in the method's failure handler. An endpoint keeps no state between
// requests besides the immutable method and the shared limiter.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/multilogin/internal/audit"
	"github.com/omarluq/multilogin/internal/auth"
	"github.com/omarluq/multilogin/internal/clienttype"
	"github.com/omarluq/multilogin/internal/handler"
	"github.com/omarluq/multilogin/internal/method"
)

// DefaultSessionCookie is the cookie read into auth.Details.SessionID.
const DefaultSessionCookie = "session_id"

// ErrPanic wraps a value recovered from a panicking verifier or handler.
var ErrPanic = errors.New("endpoint: recovered from panic")

// Limiter throttles attempts per client key.
type Limiter interface {
	Check(key string) error
}

// Endpoint is the http.Handler of one login method.
type Endpoint struct {
	method        *method.Resolved
	limiter       Limiter
	recorder      audit.Recorder
	requestID     func(context.Context) string
	sessionCookie string
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithLimiter throttles attempts by remote address.
func WithLimiter(l Limiter) Option {
	return func(e *Endpoint) { e.limiter = l }
}

// WithRecorder sends an audit event for every attempt.
func WithRecorder(r audit.Recorder) Option {
	return func(e *Endpoint) { e.recorder = r }
}

// WithRequestID sets how the request ID is read from the request context.
func WithRequestID(fn func(context.Context) string) Option {
	return func(e *Endpoint) { e.requestID = fn }
}

// WithSessionCookie changes the cookie used as session identifier.
func WithSessionCookie(name string) Option {
	return func(e *Endpoint) { e.sessionCookie = name }
}

// New creates the endpoint of m.
func New(m *method.Resolved, opts ...Option) *Endpoint {
	e := &Endpoint{
		method:        m,
		sessionCookie: DefaultSessionCookie,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Method returns the served login method.
func (e *Endpoint) Method() *method.Resolved {
	return e.method
}

// ServeHTTP implements http.Handler.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	logger := zerolog.Ctx(r.Context()).With().Str("login_method", e.method.Name()).Logger()
	r = r.WithContext(logger.WithContext(r.Context()))

	details := e.details(r)
	tok, err := e.authenticate(r, details)

	cw := &committedWriter{ResponseWriter: w}
	if err == nil {
		if err = guard(func() { e.method.Success().OnSuccess(cw, r, tok) }); err != nil {
			logger.Error().Err(err).Msg("success handler panicked")
		}
	}

	clientType := ""
	if tok != nil {
		clientType = tok.ClientType()
	}
	e.record(details, clientType, start, err)

	if err != nil {
		e.fail(cw, r, err)
		return
	}

	logger.Debug().
		Str("client_type", clientType).
		Dur("duration", time.Since(start)).
		Msg("login succeeded")
}

// authenticate runs the pipeline up to and including dispatch. The returned
// token is non-nil whenever a client type was resolved.
func (e *Endpoint) authenticate(r *http.Request, details auth.Details) (tok *auth.Token, err error) {
	defer func() {
		if p := recover(); p != nil {
			zerolog.Ctx(r.Context()).Error().
				Interface("panic", p).
				Bytes("stack", debug.Stack()).
				Msg("login pipeline panicked")
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()

	if e.limiter != nil {
		if err := e.limiter.Check(details.RemoteAddr); err != nil {
			return nil, err
		}
	}

	params, err := e.method.Extractor().Extract(r, e.method.Params())
	if err != nil {
		return nil, err
	}

	clientType, err := e.method.Resolver().Resolve(r, e.method.ClientHeader(), e.method.ClientTypes())
	if err != nil {
		if errors.Is(err, clienttype.ErrClientTypeUnresolvable) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("client type unresolvable, method resolved without client types")
		}
		return nil, err
	}

	tok = auth.NewToken(params, clientType, e.method.PrincipalParams(), e.method.CredentialParams())
	tok.SetDetails(details)

	ctx := r.Context()
	if timeout := e.method.VerifyTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if _, err := e.method.Dispatcher().Dispatch(ctx, tok); err != nil {
		return tok, err
	}
	return tok, nil
}

func (e *Endpoint) fail(w *committedWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	if w.committed {
		logger.Warn().Err(err).Msg("response already committed, failure handler skipped")
		return
	}
	perr := guard(func() { e.method.Failure().OnFailure(w, r, err) })
	if perr == nil {
		return
	}
	logger.Error().Err(perr).Msg("failure handler panicked")
	if !w.committed {
		handler.WriteError(w, http.StatusInternalServerError, handler.TypeAPI, "internal error")
	}
}

// committedWriter remembers whether a status line has been sent.
type committedWriter struct {
	http.ResponseWriter
	committed bool
}

func (w *committedWriter) WriteHeader(code int) {
	w.committed = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *committedWriter) Write(b []byte) (int, error) {
	w.committed = true
	return w.ResponseWriter.Write(b)
}

func (w *committedWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (e *Endpoint) details(r *http.Request) auth.Details {
	d := auth.Details{
		RemoteAddr: remoteHost(r.RemoteAddr),
		UserAgent:  r.UserAgent(),
	}
	if c, err := r.Cookie(e.sessionCookie); err == nil {
		d.SessionID = c.Value
	}
	if e.requestID != nil {
		d.RequestID = e.requestID(r.Context())
	}
	return d
}

func (e *Endpoint) record(d auth.Details, clientType string, start time.Time, err error) {
	if e.recorder == nil {
		return
	}
	ev := audit.Event{
		Time:       start,
		Method:     e.method.Name(),
		ClientType: clientType,
		RemoteAddr: d.RemoteAddr,
		RequestID:  d.RequestID,
		Outcome:    audit.OutcomeSuccess,
		Duration:   time.Since(start),
	}
	if err != nil {
		ev.Outcome = audit.OutcomeFailure
		ev.ErrorType = handler.Classify(err).Type
	}
	e.recorder.Record(ev)
}

// guard runs fn and converts a panic into an error.
func guard(fn func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	fn()
	return nil
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
