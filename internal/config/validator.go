package config

import (
	"net"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":      true, // Empty defaults to info
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":        true, // Empty defaults to json
	"json":    true,
	"console": true,
	"text":    true, // Alias for console
	"pretty":  true,
}

// Verbs accepted for a login endpoint.
var validHTTPMethods = map[string]bool{
	"":        true, // Empty defaults to POST
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"OPTIONS": true,
}

// Validate checks the configuration for structural errors.
// Cross references inside the login section (parameters, routing, registry
// names) are checked when the login methods are resolved.
// Returns a ValidationError containing all errors found, or nil if valid.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateServer(c, errs)
	validateLogging(c, errs)
	validateRateLimit(c, errs)
	validateHealth(c, errs)
	validateLogin(c, errs)

	return errs.ToError()
}

func validateServer(c *Config, errs *ValidationError) {
	if c.Server.Listen == "" {
		errs.Add("server.listen is required")
	} else {
		validateListenAddress(c.Server.Listen, errs)
	}

	if c.Server.TimeoutMS < 0 {
		errs.Add("server.timeout_ms must be >= 0")
	}
	if c.Server.MaxConcurrent < 0 {
		errs.Add("server.max_concurrent must be >= 0")
	}
	if c.Server.MaxBodyBytes < 0 {
		errs.Add("server.max_body_bytes must be >= 0")
	}
}

// validateListenAddress validates a listen address in host:port format.
func validateListenAddress(addr string, errs *ValidationError) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", addr)
		return
	}

	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " \t\n") {
		errs.Add("server.listen host contains invalid characters")
	}

	if port == "" {
		errs.Add("server.listen port is required")
	}
}

func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[c.Logging.Level] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)",
			c.Logging.Level)
	}

	if !validLogFormats[c.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)",
			c.Logging.Format)
	}

	if c.Logging.DebugOptions.MaxBodyLogSize < 0 {
		errs.Add("logging.debug_options.max_body_log_size must be >= 0")
	}
}

func validateRateLimit(c *Config, errs *ValidationError) {
	rl := c.RateLimit
	if rl.RequestsPerMinute < 0 {
		errs.Add("rate_limit.requests_per_minute must be >= 0")
	}
	if rl.Burst < 0 {
		errs.Add("rate_limit.burst must be >= 0")
	}
	if rl.MaxTrackedClients < 0 {
		errs.Add("rate_limit.max_tracked_clients must be >= 0")
	}
	if rl.IdleTTLMS < 0 {
		errs.Add("rate_limit.idle_ttl_ms must be >= 0")
	}
	if c.Audit.EventsPerMinute < 0 {
		errs.Add("audit.events_per_minute must be >= 0")
	}
	if c.Audit.BufferSize < 0 {
		errs.Add("audit.buffer_size must be >= 0")
	}
}

func validateHealth(c *Config, errs *ValidationError) {
	cb := c.Health.CircuitBreaker
	if cb.FailureThreshold < 0 {
		errs.Add("health.circuit_breaker.failure_threshold must be >= 0")
	}
	if cb.OpenDurationMS < 0 {
		errs.Add("health.circuit_breaker.open_duration_ms must be >= 0")
	}
	if cb.HalfOpenProbes < 0 {
		errs.Add("health.circuit_breaker.half_open_probes must be >= 0")
	}
}

func validateLogin(c *Config, errs *ValidationError) {
	if c.Login.Global.VerifyTimeoutMS < 0 {
		errs.Add("login.global.verify_timeout_ms must be >= 0")
	}

	names := lo.Keys(c.Login.Methods)
	sort.Strings(names)

	for _, name := range names {
		m := c.Login.Methods[name]
		if strings.TrimSpace(name) == "" {
			errs.Add("login.methods contains a blank method name")
			continue
		}
		verb := strings.ToUpper(strings.TrimSpace(m.HTTPMethod))
		if !validHTTPMethods[verb] {
			errs.Addf("login.methods[%s].http_method is invalid (got %q)", name, m.HTTPMethod)
		}
		if p := strings.TrimSpace(m.Path); p != "" && !strings.HasPrefix(p, "/") {
			errs.Addf("login.methods[%s].path must start with / (got %q)", name, m.Path)
		}
	}
}
