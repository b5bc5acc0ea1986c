package handler

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"

	"github.com/omarluq/multilogin/internal/auth"
)

// DefaultSuccess answers 200 with the client type and principal:
//
//	{"authenticated":true,"client_type":"APP","principal":{...}}
type DefaultSuccess struct{}

// NewDefaultSuccess creates the default success handler.
func NewDefaultSuccess() *DefaultSuccess {
	return &DefaultSuccess{}
}

// OnSuccess implements SuccessHandler.
func (d *DefaultSuccess) OnSuccess(w http.ResponseWriter, r *http.Request, tok *auth.Token) {
	logger := zerolog.Ctx(r.Context())

	body := []byte(`{"authenticated":true}`)
	body, err := sjson.SetBytes(body, "client_type", tok.ClientType())
	if err == nil {
		body, err = sjson.SetBytes(body, "principal", tok.Principal())
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode principal")
		WriteError(w, http.StatusInternalServerError, TypeAPI, "failed to encode login result")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Error().Err(err).Msg("failed to write response")
	}
}

var _ SuccessHandler = (*DefaultSuccess)(nil)
