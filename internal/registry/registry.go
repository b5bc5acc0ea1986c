// Package registry maps configuration names to login capabilities.
//
// Method configuration refers to verifiers, handlers, extractors and client
// type resolvers by name. The registry is filled at startup, frozen, and then
// consulted only while login methods are resolved, never on the request path.
package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/omarluq/multilogin/internal/auth"
	"github.com/omarluq/multilogin/internal/clienttype"
	"github.com/omarluq/multilogin/internal/extract"
	"github.com/omarluq/multilogin/internal/handler"
)

// Kinds of registered capabilities, used in error messages.
const (
	KindVerifier       = "verifier"
	KindSuccessHandler = "success handler"
	KindFailureHandler = "failure handler"
	KindExtractor      = "parameter extractor"
	KindResolver       = "client type resolver"
)

// Registration errors.
var (
	ErrFrozen    = errors.New("registry: frozen")
	ErrDuplicate = errors.New("registry: duplicate name")
	ErrBlankName = errors.New("registry: blank name")
	ErrNil       = errors.New("registry: nil capability")
)

// Registry holds named capabilities. Safe for concurrent use.
type Registry struct {
	verifiers  map[string]auth.Verifier
	successes  map[string]handler.SuccessHandler
	failures   map[string]handler.FailureHandler
	extractors map[string]extract.Extractor
	resolvers  map[string]clienttype.Resolver
	mu         sync.RWMutex
	frozen     bool
}

// New creates a registry with the built-in capabilities registered:
// extractors "form" and "json", resolvers "header", "query" and
// "header_strict", handlers "default_success" and "default_failure".
func New() *Registry {
	r := &Registry{
		verifiers:  map[string]auth.Verifier{},
		successes:  map[string]handler.SuccessHandler{},
		failures:   map[string]handler.FailureHandler{},
		extractors: map[string]extract.Extractor{},
		resolvers:  map[string]clienttype.Resolver{},
	}

	for _, e := range []extract.Extractor{extract.NewForm(), extract.NewJSON()} {
		r.extractors[e.Name()] = e
	}
	for _, cr := range []clienttype.Resolver{clienttype.NewHeader(), clienttype.NewQuery(), clienttype.NewStrictHeader()} {
		r.resolvers[cr.Name()] = cr
	}
	r.successes["default_success"] = handler.NewDefaultSuccess()
	r.failures["default_failure"] = handler.NewDefaultFailure()

	return r
}

func register[T any](r *Registry, m map[string]T, kind, name string, v T, isNil bool) error {
	if name == "" {
		return fmt.Errorf("%w for %s", ErrBlankName, kind)
	}
	if isNil {
		return fmt.Errorf("%w: %s %q", ErrNil, kind, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %s %q", ErrFrozen, kind, name)
	}
	if _, exists := m[name]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicate, kind, name)
	}
	m[name] = v
	return nil
}

func lookup[T any](r *Registry, m map[string]T, name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := m[name]
	return v, ok
}

func names[T any](r *Registry, m map[string]T) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(m))
}

// RegisterVerifier adds a business verifier.
func (r *Registry) RegisterVerifier(name string, v auth.Verifier) error {
	return register(r, r.verifiers, KindVerifier, name, v, v == nil)
}

// RegisterVerifierFunc adds a business verifier function.
func (r *Registry) RegisterVerifierFunc(name string, f auth.VerifierFunc) error {
	if f == nil {
		return register[auth.Verifier](r, r.verifiers, KindVerifier, name, nil, true)
	}
	return r.RegisterVerifier(name, f)
}

// RegisterSuccessHandler adds a success handler.
func (r *Registry) RegisterSuccessHandler(name string, h handler.SuccessHandler) error {
	return register(r, r.successes, KindSuccessHandler, name, h, h == nil)
}

// RegisterFailureHandler adds a failure handler.
func (r *Registry) RegisterFailureHandler(name string, h handler.FailureHandler) error {
	return register(r, r.failures, KindFailureHandler, name, h, h == nil)
}

// RegisterExtractor adds a parameter extractor under its own name.
func (r *Registry) RegisterExtractor(e extract.Extractor) error {
	if e == nil {
		return register[extract.Extractor](r, r.extractors, KindExtractor, "nil", nil, true)
	}
	return register(r, r.extractors, KindExtractor, e.Name(), e, false)
}

// RegisterResolver adds a client type resolver under its own name.
func (r *Registry) RegisterResolver(cr clienttype.Resolver) error {
	if cr == nil {
		return register[clienttype.Resolver](r, r.resolvers, KindResolver, "nil", nil, true)
	}
	return register(r, r.resolvers, KindResolver, cr.Name(), cr, false)
}

// Verifier looks up a verifier.
func (r *Registry) Verifier(name string) (auth.Verifier, bool) {
	return lookup(r, r.verifiers, name)
}

// SuccessHandler looks up a success handler.
func (r *Registry) SuccessHandler(name string) (handler.SuccessHandler, bool) {
	return lookup(r, r.successes, name)
}

// FailureHandler looks up a failure handler.
func (r *Registry) FailureHandler(name string) (handler.FailureHandler, bool) {
	return lookup(r, r.failures, name)
}

// Extractor looks up a parameter extractor.
func (r *Registry) Extractor(name string) (extract.Extractor, bool) {
	return lookup(r, r.extractors, name)
}

// Resolver looks up a client type resolver.
func (r *Registry) Resolver(name string) (clienttype.Resolver, bool) {
	return lookup(r, r.resolvers, name)
}

// Names returns the sorted registered names of a kind, nil for an unknown kind.
func (r *Registry) Names(kind string) []string {
	switch kind {
	case KindVerifier:
		return names(r, r.verifiers)
	case KindSuccessHandler:
		return names(r, r.successes)
	case KindFailureHandler:
		return names(r, r.failures)
	case KindExtractor:
		return names(r, r.extractors)
	case KindResolver:
		return names(r, r.resolvers)
	default:
		return nil
	}
}

// Freeze rejects all further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
