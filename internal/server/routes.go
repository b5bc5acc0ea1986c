package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/endpoint"
	"github.com/omarluq/multilogin/internal/health"
	"github.com/omarluq/multilogin/internal/method"
)

// Built-in routes.
const (
	HealthPattern  = "GET /health"
	MethodsPattern = "GET /login/methods"
)

// RouteOptions configures the routes built for each method table.
type RouteOptions struct {
	Tracker   *health.Tracker
	Endpoints []endpoint.Option
}

// LiveHandler serves the current method table. Swap installs a new table
// atomically; requests already dispatched keep the mux they started with.
type LiveHandler struct {
	current atomic.Pointer[routes]
	opts    RouteOptions
}

type routes struct {
	table *method.Table
	mux   *http.ServeMux
}

// NewLiveHandler builds the routes of table.
func NewLiveHandler(table *method.Table, opts RouteOptions) (*LiveHandler, error) {
	l := &LiveHandler{opts: opts}
	if err := l.Swap(table); err != nil {
		return nil, err
	}
	return l, nil
}

// Swap replaces the served table. On error the previous table stays active.
func (l *LiveHandler) Swap(table *method.Table) error {
	commit, err := l.Prepare(table)
	if err != nil {
		return err
	}
	commit()
	return nil
}

// Prepare builds the routes of table without serving them. The returned
// commit switches traffic over.
func (l *LiveHandler) Prepare(table *method.Table) (func(), error) {
	mux, err := buildMux(table, l.opts)
	if err != nil {
		return nil, err
	}
	next := &routes{table: table, mux: mux}
	return func() { l.current.Store(next) }, nil
}

// Table returns the table currently served.
func (l *LiveHandler) Table() *method.Table {
	return l.current.Load().table
}

// ServeHTTP implements http.Handler.
func (l *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.current.Load().mux.ServeHTTP(w, r)
}

// buildMux registers one endpoint per method plus the built-in routes.
// ServeMux panics on conflicting patterns; that is reported as an error.
func buildMux(table *method.Table, opts RouteOptions) (mux *http.ServeMux, err error) {
	defer func() {
		if p := recover(); p != nil {
			mux, err = nil, fmt.Errorf("register login routes: %v", p)
		}
	}()

	mux = http.NewServeMux()
	for _, m := range table.Methods() {
		mux.Handle(m.Pattern(), endpoint.New(m, opts.Endpoints...))
	}
	mux.Handle(HealthPattern, NewHealthHandler(table, opts.Tracker))
	mux.Handle(MethodsPattern, NewMethodsHandler(table))
	return mux, nil
}

// Middleware settings read per request so they follow config reloads.
type Middleware struct {
	Runtime     config.RuntimeConfig
	Concurrency *ConcurrencyLimiter
	Logger      *zerolog.Logger
}

// SetupRoutes wraps the live handler with the middleware chain, outermost first:
//  1. request ID, so every later log line carries it
//  2. body size limit, before anything reads the body
//  3. logging
//  4. panic recovery
//  5. concurrency limit
func SetupRoutes(live http.Handler, mw Middleware) http.Handler {
	h := live
	if mw.Concurrency != nil {
		h = ConcurrencyMiddleware(mw.Concurrency)(h)
	}
	h = RecoverMiddleware()(h)
	h = LoggingMiddleware(func() config.DebugOptions {
		return mw.Runtime.Get().Logging.DebugOptions
	})(h)
	h = MaxBodyBytesMiddleware(func() int64 {
		return mw.Runtime.Get().Server.MaxBodyBytes
	})(h)
	h = RequestIDMiddleware()(h)
	if mw.Logger != nil {
		h = withBaseLogger(*mw.Logger)(h)
	}
	return h
}

// withBaseLogger seeds the request context with the service logger.
func withBaseLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
		})
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Circuits map[string]string `json:"circuits,omitempty"`
	Status   string            `json:"status"`
	Methods  int               `json:"methods"`
}

// NewHealthHandler reports liveness, the number of served methods and the
// state of every verifier circuit breaker. Any open breaker marks the
// service "degraded"; the status code stays 200.
func NewHealthHandler(table *method.Table, tracker *health.Tracker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok", Methods: table.Len()}
		if tracker != nil {
			states := tracker.AllStates()
			resp.Circuits = make(map[string]string, len(states))
			for route, state := range states {
				resp.Circuits[route] = state.String()
				if state == health.StateOpen {
					resp.Status = "degraded"
				}
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// MethodsResponse is the body of GET /login/methods.
type MethodsResponse struct {
	Methods []method.Description `json:"methods"`
}

// NewMethodsHandler lists the resolved methods, sorted by name.
func NewMethodsHandler(table *method.Table) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		descs := table.Describe()
		sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
		writeJSON(w, http.StatusOK, MethodsResponse{Methods: descs})
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // response already committed
	json.NewEncoder(w).Encode(payload)
}
