// Package clienttype decides which client channel (PC, APP, H5, ...) a login
// request belongs to.
//
// Resolvers are deterministic and side-effect free. The first allowed type
// is the default channel: the stock resolvers fall back to it when the
// request carries no usable signal.
package clienttype

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Resolver picks the client type of a request from the allowed list.
// signal names where the resolver looks, for example a header name.
type Resolver interface {
	Name() string
	Resolve(r *http.Request, signal string, allowed []string) (string, error)
}

// Sentinel errors for client type resolution.
var (
	// ErrClientTypeUnresolvable means the allowed list was empty. Method
	// resolution rejects such configurations, so this is a programming error.
	ErrClientTypeUnresolvable = errors.New("clienttype: no client types configured")

	// ErrUnknownClientType is returned by strict resolvers for a signal value
	// outside the allowed list.
	ErrUnknownClientType = errors.New("clienttype: unknown client type")
)

// UnknownError carries the rejected signal value.
type UnknownError struct {
	Value   string
	Allowed []string
}

// Error implements the error interface.
func (e *UnknownError) Error() string {
	return fmt.Sprintf("clienttype: unknown client type %q (allowed: %s)",
		e.Value, strings.Join(e.Allowed, ", "))
}

// Is matches ErrUnknownClientType.
func (e *UnknownError) Is(target error) bool {
	return target == ErrUnknownClientType
}

// choose returns value when it is allowed, otherwise the default channel.
func choose(value string, allowed []string) (string, error) {
	if len(allowed) == 0 {
		return "", ErrClientTypeUnresolvable
	}
	if value != "" && slices.Contains(allowed, value) {
		return value, nil
	}
	return allowed[0], nil
}

// Header reads the client type from a request header.
type Header struct{}

// NewHeader creates a header resolver.
func NewHeader() *Header { return &Header{} }

// Name implements Resolver.
func (h *Header) Name() string { return "header" }

// Resolve implements Resolver. An absent or unrecognised header value
// resolves to allowed[0].
func (h *Header) Resolve(r *http.Request, signal string, allowed []string) (string, error) {
	return choose(strings.TrimSpace(r.Header.Get(signal)), allowed)
}

// Query reads the client type from a URL query parameter.
type Query struct{}

// NewQuery creates a query resolver.
func NewQuery() *Query { return &Query{} }

// Name implements Resolver.
func (q *Query) Name() string { return "query" }

// Resolve implements Resolver, with the same fallback as Header.
func (q *Query) Resolve(r *http.Request, signal string, allowed []string) (string, error) {
	return choose(strings.TrimSpace(r.URL.Query().Get(signal)), allowed)
}

// StrictHeader behaves like Header for an absent header but rejects a
// value outside the allowed list instead of falling back.
type StrictHeader struct{}

// NewStrictHeader creates a strict header resolver.
func NewStrictHeader() *StrictHeader { return &StrictHeader{} }

// Name implements Resolver.
func (s *StrictHeader) Name() string { return "header_strict" }

// Resolve implements Resolver.
func (s *StrictHeader) Resolve(r *http.Request, signal string, allowed []string) (string, error) {
	if len(allowed) == 0 {
		return "", ErrClientTypeUnresolvable
	}
	value := strings.TrimSpace(r.Header.Get(signal))
	if value != "" && !slices.Contains(allowed, value) {
		return "", &UnknownError{Value: value, Allowed: slices.Clone(allowed)}
	}
	return choose(value, allowed)
}

var (
	_ Resolver = (*Header)(nil)
	_ Resolver = (*Query)(nil)
	_ Resolver = (*StrictHeader)(nil)
)
