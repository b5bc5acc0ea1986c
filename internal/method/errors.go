package method

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is matched by every login configuration error.
var ErrConfiguration = errors.New("method: invalid login configuration")

// ConfigurationError collects every problem found while resolving the
// login section, so a broken file is reported in one pass.
type ConfigurationError struct {
	Problems []string
}

// Add appends a problem.
func (e *ConfigurationError) Add(msg string) {
	e.Problems = append(e.Problems, msg)
}

// Addf appends a formatted problem.
func (e *ConfigurationError) Addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any problem was recorded.
func (e *ConfigurationError) HasErrors() bool {
	return len(e.Problems) > 0
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "login configuration invalid"
	case 1:
		return "login configuration invalid: " + e.Problems[0]
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "login configuration invalid with %d errors:", len(e.Problems))
		for _, p := range e.Problems {
			b.WriteString("\n  - ")
			b.WriteString(p)
		}
		return b.String()
	}
}

// Unwrap returns ErrConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// toError returns nil when no problem was recorded.
func (e *ConfigurationError) toError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}
