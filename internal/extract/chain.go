package extract

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Chain runs extractors in order and merges their results. A key set by an
// earlier extractor is never overwritten by a later one.
type Chain struct {
	extractors []Extractor
}

// NewChain creates a chain over the given extractors.
func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: lo.Compact(extractors)}
}

// Name implements Extractor.
func (c *Chain) Name() string {
	return strings.Join(lo.Map(c.extractors, func(e Extractor, _ int) string {
		return e.Name()
	}), "+")
}

// Len returns the number of extractors in the chain.
func (c *Chain) Len() int {
	return len(c.extractors)
}

// Extract implements Extractor. Errors from individual extractors are logged
// and skipped, except ErrBodyTooLarge which aborts the chain.
func (c *Chain) Extract(r *http.Request, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, e := range c.extractors {
		if len(out) == len(names) {
			break
		}
		values, err := e.Extract(r, names)
		if err != nil {
			if errors.Is(err, ErrBodyTooLarge) {
				return nil, err
			}
			zerolog.Ctx(r.Context()).Warn().
				Err(err).
				Str("extractor", e.Name()).
				Msg("parameter extractor failed, skipping")
			continue
		}
		for k, v := range values {
			if _, taken := out[k]; !taken {
				out[k] = v
			}
		}
	}
	return out, nil
}

var _ Extractor = (*Chain)(nil)
