package di

import "github.com/omarluq/multilogin/internal/config"

// Reload runs the method service reload stage, as the config watcher would.
func (s *MethodService) Reload(cfg *config.Config) error {
	commit, err := s.prepare(cfg)
	if err != nil {
		return err
	}
	commit()
	return nil
}

// Apply runs the limiter reload path.
func (s *LimiterService) Apply(cfg config.RateLimitConfig) error {
	return s.apply(cfg)
}
