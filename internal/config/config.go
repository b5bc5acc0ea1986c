// Package config provides configuration loading and parsing for multilogin.
package config

import (
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/multilogin/internal/health"
)

// RuntimeConfig defines the interface for accessing runtime configuration that supports hot-reload.
// Components that need to observe config changes should use this interface instead of
// holding a direct *Config pointer, which would become stale after hot-reload.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Login defaults applied when the global section leaves a field blank.
const (
	DefaultClientHeader       = "request-client"
	DefaultClientType         = "DEFAULT"
	DefaultSuccessHandler     = "default_success"
	DefaultFailureHandler     = "default_failure"
	DefaultParameterExtractor = "form"
	DefaultClientTypeResolver = "header"
	DefaultHTTPMethod         = "POST"
	DefaultPathPrefix         = "/login/"
)

// Config represents the complete multilogin configuration.
type Config struct {
	Login     LoginConfig     `yaml:"login" toml:"login"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit" toml:"audit"`
	Health    health.Config   `yaml:"health" toml:"health"`
}

// LoginConfig is the raw, unresolved login section. It is turned into
// immutable per-method settings by the method package.
type LoginConfig struct {
	Methods map[string]MethodConfig `yaml:"methods" toml:"methods"`
	Global  GlobalConfig            `yaml:"global" toml:"global"`
	Enabled bool                    `yaml:"enabled" toml:"enabled"`
}

// HandlerConfig names the success and failure handlers of a method.
// A blank field inherits from the global section.
type HandlerConfig struct {
	Success string `yaml:"success" toml:"success"`
	Failure string `yaml:"failure" toml:"failure"`
}

// GlobalConfig holds defaults shared by every login method.
type GlobalConfig struct {
	// ClientHeader is the request header carrying the client type signal.
	ClientHeader string `yaml:"client_header" toml:"client_header"`

	// ClientTypes lists the recognised client types. The first one is the fallback.
	ClientTypes []string `yaml:"client_types" toml:"client_types"`

	Handler HandlerConfig `yaml:"handler" toml:"handler"`

	// ParameterExtractors are registry names tried in order, first writer wins.
	ParameterExtractors []string `yaml:"parameter_extractors" toml:"parameter_extractors"`

	// ClientTypeResolver is the registry name of the client type resolver.
	ClientTypeResolver string `yaml:"client_type_resolver" toml:"client_type_resolver"`

	// VerifyTimeoutMS bounds a single business verification. 0 disables the bound.
	VerifyTimeoutMS int `yaml:"verify_timeout_ms" toml:"verify_timeout_ms"`
}

// WithDefaults returns a copy of g with blank fields filled in.
func (g GlobalConfig) WithDefaults() GlobalConfig {
	out := g
	if strings.TrimSpace(out.ClientHeader) == "" {
		out.ClientHeader = DefaultClientHeader
	}
	if out.ClientTypes == nil {
		out.ClientTypes = []string{DefaultClientType}
	} else {
		out.ClientTypes = slices.Clone(g.ClientTypes)
	}
	if out.Handler.Success == "" {
		out.Handler.Success = DefaultSuccessHandler
	}
	if out.Handler.Failure == "" {
		out.Handler.Failure = DefaultFailureHandler
	}
	if len(out.ParameterExtractors) == 0 {
		out.ParameterExtractors = []string{DefaultParameterExtractor}
	} else {
		out.ParameterExtractors = slices.Clone(g.ParameterExtractors)
	}
	if out.ClientTypeResolver == "" {
		out.ClientTypeResolver = DefaultClientTypeResolver
	}
	return out
}

// GetVerifyTimeoutOption returns the verification timeout as an Option.
// Returns None if VerifyTimeoutMS is zero or negative.
func (g *GlobalConfig) GetVerifyTimeoutOption() mo.Option[time.Duration] {
	if g.VerifyTimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(g.VerifyTimeoutMS) * time.Millisecond)
}

// MethodConfig is the raw configuration of one login method.
//
//nolint:govet // Field order optimized for readability, not memory alignment
type MethodConfig struct {
	// Path is the endpoint path. Blank means "/login/<name>".
	Path string `yaml:"path" toml:"path"`

	// HTTPMethod is the accepted verb. Blank means POST.
	HTTPMethod string `yaml:"http_method" toml:"http_method"`

	// Params lists every parameter read from the request. When empty it is
	// synthesized from PrincipalParams followed by CredentialParams.
	Params           []string `yaml:"params" toml:"params"`
	PrincipalParams  []string `yaml:"principal_params" toml:"principal_params"`
	CredentialParams []string `yaml:"credential_params" toml:"credential_params"`

	// Overrides of the global section. nil or blank inherits.
	ClientHeader        *string       `yaml:"client_header" toml:"client_header"`
	ClientTypes         []string      `yaml:"client_types" toml:"client_types"`
	Handler             HandlerConfig `yaml:"handler" toml:"handler"`
	ParameterExtractors []string      `yaml:"parameter_extractors" toml:"parameter_extractors"`
	ClientTypeResolver  string        `yaml:"client_type_resolver" toml:"client_type_resolver"`

	// Verifiers maps each client type to a registered verifier name.
	Verifiers map[string]string `yaml:"verifiers" toml:"verifiers"`

	// Providers is the legacy positional form of Verifiers, paired index by
	// index with the effective client types. Mutually exclusive with Verifiers.
	Providers []string `yaml:"providers" toml:"providers"`
}

// ServerConfig defines server-level settings.
type ServerConfig struct {
	Listen        string `yaml:"listen" toml:"listen"`
	TimeoutMS     int    `yaml:"timeout_ms" toml:"timeout_ms"`
	MaxConcurrent int    `yaml:"max_concurrent" toml:"max_concurrent"`
	MaxBodyBytes  int64  `yaml:"max_body_bytes" toml:"max_body_bytes"`
	EnableHTTP2   bool   `yaml:"enable_http2" toml:"enable_http2"` // Enable HTTP/2 cleartext (h2c) support
}

// GetTimeoutOption returns the timeout as an Option.
// Returns None if TimeoutMS is zero (use default).
func (s *ServerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// GetMaxConcurrentOption returns the max concurrent setting as an Option.
// Returns None if MaxConcurrent is zero (unlimited).
func (s *ServerConfig) GetMaxConcurrentOption() mo.Option[int] {
	if s.MaxConcurrent <= 0 {
		return mo.None[int]()
	}
	return mo.Some(s.MaxConcurrent)
}

// RateLimitConfig throttles login attempts per client address.
type RateLimitConfig struct {
	Enabled           bool  `yaml:"enabled" toml:"enabled"`
	RequestsPerMinute int   `yaml:"requests_per_minute" toml:"requests_per_minute"`
	Burst             int   `yaml:"burst" toml:"burst"`
	MaxTrackedClients int64 `yaml:"max_tracked_clients" toml:"max_tracked_clients"`
	IdleTTLMS         int   `yaml:"idle_ttl_ms" toml:"idle_ttl_ms"`
}

// Rate limit defaults.
const (
	DefaultRequestsPerMinute = 30
	DefaultMaxTrackedClients = 10_000
	DefaultIdleTTLMS         = 10 * 60 * 1000
)

// GetRequestsPerMinute returns the per-client request rate or the default.
func (r *RateLimitConfig) GetRequestsPerMinute() int {
	if r.RequestsPerMinute <= 0 {
		return DefaultRequestsPerMinute
	}
	return r.RequestsPerMinute
}

// GetBurst returns the bucket size. Defaults to the per-minute rate.
func (r *RateLimitConfig) GetBurst() int {
	if r.Burst <= 0 {
		return r.GetRequestsPerMinute()
	}
	return r.Burst
}

// GetMaxTrackedClients returns the maximum number of tracked client buckets.
func (r *RateLimitConfig) GetMaxTrackedClients() int64 {
	if r.MaxTrackedClients <= 0 {
		return DefaultMaxTrackedClients
	}
	return r.MaxTrackedClients
}

// GetIdleTTL returns how long an idle client bucket is retained.
func (r *RateLimitConfig) GetIdleTTL() time.Duration {
	if r.IdleTTLMS <= 0 {
		return time.Duration(DefaultIdleTTLMS) * time.Millisecond
	}
	return time.Duration(r.IdleTTLMS) * time.Millisecond
}

// AuditConfig controls the login audit stream.
type AuditConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// EventsPerMinute caps audit lines per client address. 0 means 60.
	EventsPerMinute int64 `yaml:"events_per_minute" toml:"events_per_minute"`
	BufferSize      int   `yaml:"buffer_size" toml:"buffer_size"`
}

// GetEventsPerMinute returns the per-client audit cap with default fallback.
func (a *AuditConfig) GetEventsPerMinute() int64 {
	if a.EventsPerMinute <= 0 {
		return 60
	}
	return a.EventsPerMinute
}

// GetBufferSize returns the audit channel capacity with default fallback.
func (a *AuditConfig) GetBufferSize() int {
	if a.BufferSize <= 0 {
		return 256
	}
	return a.BufferSize
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string       `yaml:"level" toml:"level"`                 // debug, info, warn, error
	Format       string       `yaml:"format" toml:"format"`               // json, console
	Output       string       `yaml:"output" toml:"output"`               // stdout, stderr, or file path
	Pretty       bool         `yaml:"pretty" toml:"pretty"`               // enable colored console output
	DebugOptions DebugOptions `yaml:"debug_options" toml:"debug_options"` // granular debug logging controls
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// EnableAllDebugOptions turns on all debug logging features.
// Used by --debug CLI flag shortcut.
func (l *LoggingConfig) EnableAllDebugOptions() {
	l.Level = LevelDebug
	l.DebugOptions = DebugOptions{
		LogRequestBody: true,
		MaxBodyLogSize: 1000,
	}
}

// DebugOptions defines granular debug logging controls.
type DebugOptions struct {
	// LogRequestBody enables logging of login request bodies in debug mode.
	// Credential-looking fields are redacted before logging.
	LogRequestBody bool `yaml:"log_request_body" toml:"log_request_body"`

	// MaxBodyLogSize is the maximum number of bytes logged from a body.
	MaxBodyLogSize int `yaml:"max_body_log_size" toml:"max_body_log_size"`
}

// GetMaxBodyLogSize returns the effective max body log size with default fallback.
func (d *DebugOptions) GetMaxBodyLogSize() int {
	if d.MaxBodyLogSize <= 0 {
		return 1000
	}
	return d.MaxBodyLogSize
}
