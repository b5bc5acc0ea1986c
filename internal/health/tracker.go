package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/omarluq/multilogin/internal/auth"
)

// Tracker owns one circuit breaker per verifier route. Breakers survive
// config reloads because they are keyed by route name, not by table.
type Tracker struct {
	circuits map[string]*CircuitBreaker
	logger   *zerolog.Logger
	config   CircuitBreakerConfig
	mu       sync.RWMutex
}

// NewTracker creates a new Tracker with the given configuration.
func NewTracker(cfg CircuitBreakerConfig, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		circuits: make(map[string]*CircuitBreaker),
		config:   cfg,
		logger:   logger,
	}
}

// GetOrCreateCircuit returns the circuit breaker for a route, creating it lazily.
func (t *Tracker) GetOrCreateCircuit(route string) *CircuitBreaker {
	t.mu.RLock()
	cb, exists := t.circuits[route]
	t.mu.RUnlock()

	if exists {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if cb, exists = t.circuits[route]; exists {
		return cb
	}

	cb = NewCircuitBreaker(route, t.config, t.logger)
	t.circuits[route] = cb

	if t.logger != nil {
		t.logger.Debug().Str("route", route).Msg("created circuit breaker")
	}

	return cb
}

// GetState returns the state of a route's breaker, StateClosed if none exists.
func (t *Tracker) GetState(route string) State {
	t.mu.RLock()
	cb, exists := t.circuits[route]
	t.mu.RUnlock()

	if !exists {
		return StateClosed
	}
	return cb.State()
}

// AllStates returns a snapshot of all route circuit states.
func (t *Tracker) AllStates() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make(map[string]State, len(t.circuits))
	for name, cb := range t.circuits {
		states[name] = cb.State()
	}
	return states
}

// Guard wraps v so every call passes through the route's breaker.
// A nil tracker returns v unchanged.
func (t *Tracker) Guard(route string, v auth.Verifier) auth.Verifier {
	if t == nil {
		return v
	}
	return &guardedVerifier{next: v, breaker: t.GetOrCreateCircuit(route)}
}

type guardedVerifier struct {
	next    auth.Verifier
	breaker *CircuitBreaker
}

// Verify releases the breaker slot on every exit. A panic counts as a
// failure and is re-raised for the caller's recover.
func (g *guardedVerifier) Verify(ctx context.Context, params map[string]string) (principal any, err error) {
	done, err := g.breaker.Allow()
	if err != nil {
		return nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			done(fmt.Errorf("%w: %v", ErrVerifierPanic, p))
			panic(p)
		}
	}()
	principal, err = g.next.Verify(ctx, params)
	done(err)
	return principal, err
}
