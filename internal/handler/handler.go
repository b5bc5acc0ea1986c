// Package handler turns a login outcome into an HTTP response.
//
// Success and failure handlers are looked up by name when a login method is
// resolved. The defaults write a small JSON document; applications register
// their own to issue sessions or tokens.
package handler

import (
	"net/http"

	"github.com/omarluq/multilogin/internal/auth"
)

// SuccessHandler is called with the authenticated token.
type SuccessHandler interface {
	OnSuccess(w http.ResponseWriter, r *http.Request, tok *auth.Token)
}

// FailureHandler is called with any per-request login error.
type FailureHandler interface {
	OnFailure(w http.ResponseWriter, r *http.Request, err error)
}

// SuccessFunc adapts a function to SuccessHandler.
type SuccessFunc func(w http.ResponseWriter, r *http.Request, tok *auth.Token)

// OnSuccess calls f.
func (f SuccessFunc) OnSuccess(w http.ResponseWriter, r *http.Request, tok *auth.Token) {
	f(w, r, tok)
}

// FailureFunc adapts a function to FailureHandler.
type FailureFunc func(w http.ResponseWriter, r *http.Request, err error)

// OnFailure calls f.
func (f FailureFunc) OnFailure(w http.ResponseWriter, r *http.Request, err error) {
	f(w, r, err)
}
