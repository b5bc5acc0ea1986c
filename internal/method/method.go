// Package method resolves the raw login section into immutable, fully
// populated login methods.
//
// Resolution runs once per configuration load. Method overrides are merged
// over the global section, every registry name is looked up, and each
// method gets an explicit client type to verifier routing table. Request
// handling only ever sees the resolved form.
package method

import (
	"maps"
	"slices"
	"time"

	"github.com/omarluq/multilogin/internal/clienttype"
	"github.com/omarluq/multilogin/internal/extract"
	"github.com/omarluq/multilogin/internal/handler"
	"github.com/omarluq/multilogin/internal/router"
)

// Resolved is one login method after resolution. It is immutable; accessors
// that return slices or maps return copies.
type Resolved struct {
	success        handler.SuccessHandler
	failure        handler.FailureHandler
	resolver       clienttype.Resolver
	extractor      *extract.Chain
	dispatcher     *router.Dispatcher
	verifierNames  map[string]string
	name           string
	path           string
	httpMethod     string
	clientHeader   string
	successName    string
	failureName    string
	resolverName   string
	params         []string
	principal      []string
	credential     []string
	clientTypes    []string
	extractorNames []string
	verifyTimeout  time.Duration
}

// Name returns the method name.
func (m *Resolved) Name() string { return m.name }

// Path returns the endpoint path.
func (m *Resolved) Path() string { return m.path }

// HTTPMethod returns the accepted verb.
func (m *Resolved) HTTPMethod() string { return m.httpMethod }

// Pattern returns the http.ServeMux pattern, for example "POST /login/password".
func (m *Resolved) Pattern() string { return m.httpMethod + " " + m.path }

// Params returns every parameter name read from requests.
func (m *Resolved) Params() []string { return slices.Clone(m.params) }

// PrincipalParams returns the principal parameter names in order.
func (m *Resolved) PrincipalParams() []string { return slices.Clone(m.principal) }

// CredentialParams returns the credential parameter names in order.
func (m *Resolved) CredentialParams() []string { return slices.Clone(m.credential) }

// ClientTypes returns the allowed client types; the first is the default.
func (m *Resolved) ClientTypes() []string { return slices.Clone(m.clientTypes) }

// ClientHeader returns the name of the client type signal.
func (m *Resolved) ClientHeader() string { return m.clientHeader }

// Success returns the success handler.
func (m *Resolved) Success() handler.SuccessHandler { return m.success }

// Failure returns the failure handler.
func (m *Resolved) Failure() handler.FailureHandler { return m.failure }

// Extractor returns the parameter extractor chain.
func (m *Resolved) Extractor() extract.Extractor { return m.extractor }

// Resolver returns the client type resolver.
func (m *Resolved) Resolver() clienttype.Resolver { return m.resolver }

// Dispatcher returns the routing table of the method.
func (m *Resolved) Dispatcher() *router.Dispatcher { return m.dispatcher }

// VerifyTimeout returns the verification bound, zero when unbounded.
func (m *Resolved) VerifyTimeout() time.Duration { return m.verifyTimeout }

// Description is a plain value snapshot of a resolved method, safe to
// compare and to serialise.
type Description struct {
	Verifiers           map[string]string `json:"verifiers"`
	Name                string            `json:"name"`
	Path                string            `json:"path"`
	HTTPMethod          string            `json:"http_method"`
	ClientHeader        string            `json:"client_header"`
	SuccessHandler      string            `json:"success_handler"`
	FailureHandler      string            `json:"failure_handler"`
	ClientTypeResolver  string            `json:"client_type_resolver"`
	Params              []string          `json:"params"`
	PrincipalParams     []string          `json:"principal_params"`
	CredentialParams    []string          `json:"credential_params"`
	ClientTypes         []string          `json:"client_types"`
	ParameterExtractors []string          `json:"parameter_extractors"`
	VerifyTimeoutMS     int64             `json:"verify_timeout_ms,omitempty"`
}

// Describe returns the value snapshot of m.
func (m *Resolved) Describe() Description {
	return Description{
		Name:                m.name,
		Path:                m.path,
		HTTPMethod:          m.httpMethod,
		ClientHeader:        m.clientHeader,
		SuccessHandler:      m.successName,
		FailureHandler:      m.failureName,
		ClientTypeResolver:  m.resolverName,
		Params:              slices.Clone(m.params),
		PrincipalParams:     slices.Clone(m.principal),
		CredentialParams:    slices.Clone(m.credential),
		ClientTypes:         slices.Clone(m.clientTypes),
		ParameterExtractors: slices.Clone(m.extractorNames),
		Verifiers:           maps.Clone(m.verifierNames),
		VerifyTimeoutMS:     m.verifyTimeout.Milliseconds(),
	}
}

// Table is the set of resolved methods of one configuration load.
type Table struct {
	byName  map[string]*Resolved
	methods []*Resolved
}

// Methods returns the methods sorted by name.
func (t *Table) Methods() []*Resolved {
	return slices.Clone(t.methods)
}

// Lookup finds a method by name.
func (t *Table) Lookup(name string) (*Resolved, bool) {
	m, ok := t.byName[name]
	return m, ok
}

// Len returns the number of methods.
func (t *Table) Len() int {
	return len(t.methods)
}

// Describe returns the snapshots of every method, sorted by name.
func (t *Table) Describe() []Description {
	out := make([]Description, len(t.methods))
	for i, m := range t.methods {
		out[i] = m.Describe()
	}
	return out
}
