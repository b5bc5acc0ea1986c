package auth

import (
	"maps"
	"slices"
)

// Details is request metadata attached to a token before dispatch.
type Details struct {
	RemoteAddr string
	SessionID  string
	RequestID  string
	UserAgent  string
}

// Token carries one login attempt through the pipeline.
//
// It starts unauthenticated, holding the extracted parameters and the
// resolved client type. Authenticate flips it exactly once. A token belongs
// to a single request and must not be shared between goroutines.
type Token struct {
	principal       any
	params          map[string]string
	details         Details
	clientType      string
	principalNames  []string
	credentialNames []string
	authenticated   bool
}

// NewToken builds an unauthenticated token. The inputs are copied.
func NewToken(params map[string]string, clientType string, principalNames, credentialNames []string) *Token {
	p := maps.Clone(params)
	if p == nil {
		p = map[string]string{}
	}
	return &Token{
		params:          p,
		clientType:      clientType,
		principalNames:  slices.Clone(principalNames),
		credentialNames: slices.Clone(credentialNames),
	}
}

// Params returns a copy of the raw parameter mapping.
func (t *Token) Params() map[string]string {
	return maps.Clone(t.params)
}

// Param returns a single parameter value.
func (t *Token) Param(name string) (string, bool) {
	v, ok := t.params[name]
	return v, ok
}

// ClientType returns the resolved client type.
func (t *Token) ClientType() string {
	return t.clientType
}

// Principal returns the ordered principal parameter values while the token
// is unauthenticated, and the verifier's principal afterwards.
// Principal names with no extracted value project to "".
func (t *Token) Principal() any {
	if t.authenticated {
		return t.principal
	}
	return t.project(t.principalNames)
}

// PrincipalValues returns the ordered values of the principal parameters.
func (t *Token) PrincipalValues() []string {
	return t.project(t.principalNames)
}

// Credentials returns the ordered values of the credential parameters.
func (t *Token) Credentials() []string {
	return t.project(t.credentialNames)
}

func (t *Token) project(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = t.params[name]
	}
	return out
}

// Authenticated reports whether a verifier accepted the token.
func (t *Token) Authenticated() bool {
	return t.authenticated
}

// Details returns the attached request metadata.
func (t *Token) Details() Details {
	return t.details
}

// SetDetails attaches request metadata.
func (t *Token) SetDetails(d Details) {
	t.details = d
}

// Authenticate records the principal and marks the token authenticated.
// It fails if the token was already authenticated.
func (t *Token) Authenticate(principal any) error {
	if t.authenticated {
		return ErrAlreadyAuthenticated
	}
	t.principal = principal
	t.authenticated = true
	return nil
}
