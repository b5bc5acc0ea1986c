// Package auth defines the in-flight login token and the business verifier
// contract that a login method dispatches to.
//
// A Verifier is supplied by the application. It receives the raw parameter
// mapping extracted from the request and returns an opaque principal, or an
// error describing why the credentials were rejected:
//
//	verify := auth.VerifierFunc(func(ctx context.Context, params map[string]string) (any, error) {
//		user, err := users.Check(ctx, params["username"], params["password"])
//		if err != nil {
//			return nil, auth.Reject("bad_credentials", "invalid username or password")
//		}
//		return user, nil
//	})
package auth

import (
	"context"
	"errors"
)

// Verifier checks the parameters of one login attempt.
// Implementations must be safe for concurrent use.
type Verifier interface {
	Verify(ctx context.Context, params map[string]string) (any, error)
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(ctx context.Context, params map[string]string) (any, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, params map[string]string) (any, error) {
	return f(ctx, params)
}

// Sentinel errors for token handling and dispatch outcomes.
var (
	// ErrPrincipalNotFound is returned when a verifier succeeds without a principal.
	ErrPrincipalNotFound = errors.New("auth: verifier returned no principal")

	// ErrAlreadyAuthenticated is returned when a token is authenticated twice.
	ErrAlreadyAuthenticated = errors.New("auth: token already authenticated")
)

// VerificationError is the rejection a verifier returns for bad credentials.
// Code is a stable machine-readable reason; Message is safe to show a caller.
type VerificationError struct {
	Err     error
	Code    string
	Message string
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	default:
		return "verification failed"
	}
}

// Unwrap returns the underlying cause.
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Reject creates a VerificationError with the given code and message.
func Reject(code, message string) *VerificationError {
	return &VerificationError{Code: code, Message: message}
}

// RejectWithCause creates a VerificationError that preserves cause.
func RejectWithCause(code, message string, cause error) *VerificationError {
	return &VerificationError{Code: code, Message: message, Err: cause}
}

// IsRejection reports whether err means the caller's credentials were refused,
// as opposed to the verifier being unable to decide.
func IsRejection(err error) bool {
	if errors.Is(err, ErrPrincipalNotFound) {
		return true
	}
	var verr *VerificationError
	return errors.As(err, &verr)
}
