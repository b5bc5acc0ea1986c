package server

import (
	"context"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/extract"
)

// redaction pairs a pattern with its replacement.
type redaction struct {
	pattern *regexp.Regexp
	replace string
}

const secretFields = `password|passwd|pwd|code|otp|token|secret|pin|captcha|api_key|authorization`

// Credential fields are redacted in both JSON and urlencoded bodies.
var redactions = []redaction{
	{
		pattern: regexp.MustCompile(`(?i)"(` + secretFields + `)"\s*:\s*"[^"]*"`),
		replace: `"$1":"REDACTED"`,
	},
	{
		pattern: regexp.MustCompile(`(?i)(^|&)(` + secretFields + `)=[^&]*`),
		replace: `${1}${2}=REDACTED`,
	},
}

// LogRequestDetails logs a redacted preview of the login body at debug level.
// The body is buffered with extract.BufferBody so extractors read the same bytes.
func LogRequestDetails(ctx context.Context, r *http.Request, opts config.DebugOptions) {
	if !opts.LogRequestBody {
		return
	}

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() > zerolog.DebugLevel {
		return
	}

	body, err := extract.BufferBody(r)
	if err != nil {
		logger.Debug().Err(err).Msg("failed to read request body")
		return
	}
	if len(body) == 0 {
		return
	}

	preview := redactSensitiveFields(string(truncateBody(body, opts.GetMaxBodyLogSize())))
	logger.Debug().
		Str("content_type", r.Header.Get("Content-Type")).
		Int("body_size", len(body)).
		Str("body_preview", preview).
		Msg("login request body")
}

// truncateBody truncates body to max size.
func truncateBody(body []byte, maxSize int) []byte {
	if len(body) > maxSize {
		return body[:maxSize]
	}
	return body
}

// redactSensitiveFields masks credential values in a JSON or urlencoded body.
func redactSensitiveFields(body string) string {
	return lo.Reduce(redactions, func(acc string, r redaction, _ int) string {
		return r.pattern.ReplaceAllString(acc, r.replace)
	}, body)
}
