package di

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/ratelimit"
)

// LimiterService throttles login attempts per client address. The current
// limiter is replaced when the rate_limit section changes; a disabled
// section lets every attempt through.
type LimiterService struct {
	limiter *ratelimit.ClientLimiter
	current config.RateLimitConfig
	mu      sync.RWMutex
}

// NewLimiter creates the limiter service from configuration.
func NewLimiter(i do.Injector) (*LimiterService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	svc := &LimiterService{}
	if err := svc.apply(cfgSvc.Get().RateLimit); err != nil {
		return nil, err
	}

	cfgSvc.AddStage("rate_limit", func(newCfg *config.Config) (func(), error) {
		return svc.prepare(newCfg.RateLimit)
	})

	return svc, nil
}

// Check implements endpoint.Limiter.
func (s *LimiterService) Check(key string) error {
	s.mu.RLock()
	l := s.limiter
	s.mu.RUnlock()

	if l == nil {
		return nil
	}
	return l.Check(key)
}

// Enabled reports whether attempts are currently throttled.
func (s *LimiterService) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limiter != nil
}

func (s *LimiterService) apply(cfg config.RateLimitConfig) error {
	next, err := buildLimiter(cfg)
	if err != nil {
		return err
	}
	s.install(next, cfg)
	return nil
}

// prepare returns the commit that rebuilds the limiter for cfg, or nil when
// cfg did not change. The limiter is built at commit time so an abandoned
// reload leaves nothing running.
func (s *LimiterService) prepare(cfg config.RateLimitConfig) (func(), error) {
	s.mu.RLock()
	unchanged := s.current == cfg && (s.limiter != nil || !cfg.Enabled)
	s.mu.RUnlock()
	if unchanged {
		return nil, nil
	}

	return func() {
		if err := s.apply(cfg); err != nil {
			log.Error().Err(err).Msg("login rate limit not updated, keeping previous limiter")
		}
	}, nil
}

func buildLimiter(cfg config.RateLimitConfig) (*ratelimit.ClientLimiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return ratelimit.NewClientLimiter(cfg)
}

func (s *LimiterService) install(next *ratelimit.ClientLimiter, cfg config.RateLimitConfig) {
	s.mu.Lock()
	old := s.limiter
	s.limiter, s.current = next, cfg
	s.mu.Unlock()

	if old != nil {
		old.Close()
		log.Info().
			Bool("enabled", cfg.Enabled).
			Int("requests_per_minute", cfg.GetRequestsPerMinute()).
			Msg("login rate limit updated via hot-reload")
	}
}

// Shutdown implements do.Shutdowner.
func (s *LimiterService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limiter != nil {
		s.limiter.Close()
		s.limiter = nil
	}
	return nil
}
