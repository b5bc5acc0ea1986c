// Package router dispatches a login token to the business verifier bound to
// its client type.
//
// The routing table is built once, when a login method is resolved, as an
// explicit client type to verifier mapping:
//
//	Request -> Extract -> Resolve client type -> Dispatcher (select verifier) -> Verifier
//
// Dispatch is a pure function of the client type, the table and the
// parameters; the dispatcher holds no per-request state.
package router

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/samber/mo"

	"github.com/omarluq/multilogin/internal/auth"
)

// ErrUnroutableClientType is returned when no verifier is bound to the token's client type.
var ErrUnroutableClientType = errors.New("router: login method not configured for client type")

// UnroutableError names the client type that had no route.
type UnroutableError struct {
	ClientType string
}

// Error implements the error interface.
func (e *UnroutableError) Error() string {
	return fmt.Sprintf("router: login method not configured for client type: %q", e.ClientType)
}

// Is matches ErrUnroutableClientType.
func (e *UnroutableError) Is(target error) bool {
	return target == ErrUnroutableClientType
}

// Dispatcher routes tokens by client type. It is immutable and safe for
// concurrent use.
type Dispatcher struct {
	routes map[string]auth.Verifier
}

// NewDispatcher creates a dispatcher over a copy of routes.
func NewDispatcher(routes map[string]auth.Verifier) *Dispatcher {
	return &Dispatcher{routes: maps.Clone(routes)}
}

// ClientTypes returns the routed client types in sorted order.
func (d *Dispatcher) ClientTypes() []string {
	return slices.Sorted(maps.Keys(d.routes))
}

// Route returns the verifier bound to clientType.
func (d *Dispatcher) Route(clientType string) (auth.Verifier, bool) {
	v, ok := d.routes[clientType]
	return v, ok
}

// Dispatch invokes the verifier bound to the token's client type.
//
// Verifier errors are returned unchanged. A verifier that succeeds without a
// principal yields auth.ErrPrincipalNotFound. On success the token is
// authenticated with the principal and returned.
func (d *Dispatcher) Dispatch(ctx context.Context, tok *auth.Token) (*auth.Token, error) {
	verifier, ok := d.routes[tok.ClientType()]
	if !ok {
		return nil, &UnroutableError{ClientType: tok.ClientType()}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	principal, err := verifier.Verify(ctx, tok.Params())
	if err != nil {
		return nil, err
	}
	if isEmptyPrincipal(principal) {
		return nil, auth.ErrPrincipalNotFound
	}

	if err := tok.Authenticate(principal); err != nil {
		return nil, err
	}
	return tok, nil
}

// DispatchResult is Dispatch returning mo.Result for callers that prefer
// chaining over explicit error checks.
func (d *Dispatcher) DispatchResult(ctx context.Context, tok *auth.Token) mo.Result[*auth.Token] {
	return mo.TupleToResult(d.Dispatch(ctx, tok))
}

// isEmptyPrincipal treats nil, typed nil pointers and empty strings as no principal.
func isEmptyPrincipal(p any) bool {
	if p == nil {
		return true
	}
	if s, ok := p.(string); ok {
		return s == ""
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
