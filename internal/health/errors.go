package health

import "errors"

var (
	// ErrCircuitOpen is returned when the circuit breaker is open and rejecting requests.
	ErrCircuitOpen = errors.New("health: circuit breaker is open")

	// ErrVerifierPanic is recorded against a breaker when a guarded verifier panics.
	ErrVerifierPanic = errors.New("health: verifier panicked")
)
