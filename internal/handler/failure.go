package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/multilogin/internal/auth"
	"github.com/omarluq/multilogin/internal/clienttype"
	"github.com/omarluq/multilogin/internal/extract"
	"github.com/omarluq/multilogin/internal/health"
	"github.com/omarluq/multilogin/internal/ratelimit"
	"github.com/omarluq/multilogin/internal/router"
)

// Outcome is the HTTP rendering of a login error.
type Outcome struct {
	Type    string
	Message string
	Code    string
	Status  int
}

// Classify maps a login error to its HTTP outcome. A verifier rejection
// wins over any cause it wraps. Messages of internal errors are never exposed.
func Classify(err error) Outcome {
	var verr *auth.VerificationError
	switch {
	case errors.As(err, &verr):
		msg := verr.Message
		if msg == "" {
			msg = "authentication failed"
		}
		return Outcome{Status: http.StatusUnauthorized, Type: TypeAuthentication,
			Message: msg, Code: verr.Code}
	case errors.Is(err, extract.ErrBodyTooLarge):
		return Outcome{Status: http.StatusRequestEntityTooLarge, Type: TypeTooLarge,
			Message: "request body exceeds the maximum allowed size"}
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		return Outcome{Status: http.StatusTooManyRequests, Type: TypeRateLimit,
			Message: "too many login attempts"}
	case errors.Is(err, health.ErrCircuitOpen):
		return Outcome{Status: http.StatusServiceUnavailable, Type: TypeUnavailable,
			Message: "login is temporarily unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{Status: http.StatusGatewayTimeout, Type: TypeTimeout,
			Message: "login verification timed out"}
	case errors.Is(err, router.ErrUnroutableClientType),
		errors.Is(err, clienttype.ErrUnknownClientType):
		return Outcome{Status: http.StatusBadRequest, Type: TypeInvalidRequest, Message: err.Error()}
	case errors.Is(err, auth.ErrPrincipalNotFound):
		return Outcome{Status: http.StatusUnauthorized, Type: TypeAuthentication,
			Message: "authentication failed"}
	default:
		return Outcome{Status: http.StatusInternalServerError, Type: TypeAPI,
			Message: "internal error"}
	}
}

// DefaultFailure writes the classified error in the JSON error envelope.
type DefaultFailure struct{}

// NewDefaultFailure creates the default failure handler.
func NewDefaultFailure() *DefaultFailure {
	return &DefaultFailure{}
}

// OnFailure implements FailureHandler.
func (d *DefaultFailure) OnFailure(w http.ResponseWriter, r *http.Request, err error) {
	out := Classify(err)

	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if out.Status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Int("status", out.Status).Str("error_type", out.Type).Msg("login failed")

	if out.Status == http.StatusTooManyRequests {
		var ra interface{ RetryAfter() time.Duration }
		if errors.As(err, &ra) {
			WriteRateLimitError(w, ra.RetryAfter())
			return
		}
	}

	writeJSON(w, out.Status, ErrorResponse{
		Type:  "error",
		Error: ErrorDetail{Type: out.Type, Message: out.Message, Code: out.Code},
	})
}

var _ FailureHandler = (*DefaultFailure)(nil)
