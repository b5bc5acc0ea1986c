package di

import (
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/server"
)

// ConcurrencyService wraps the concurrency limiter for DI.
type ConcurrencyService struct {
	Limiter *server.ConcurrencyLimiter
}

// NewConcurrencyService creates the concurrency limiter service.
// The limit follows server.max_concurrent across reloads.
func NewConcurrencyService(i do.Injector) (*ConcurrencyService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	limiter := server.NewConcurrencyLimiter(int64(cfgSvc.Get().Server.MaxConcurrent))
	svc := &ConcurrencyService{Limiter: limiter}

	cfgSvc.AddStage("concurrency", func(newCfg *config.Config) (func(), error) {
		newLimit := int64(newCfg.Server.MaxConcurrent)
		oldLimit := svc.Limiter.GetLimit()
		if newLimit == oldLimit {
			return nil, nil
		}
		return func() {
			svc.Limiter.SetLimit(newLimit)
			log.Info().
				Int64("old_limit", oldLimit).
				Int64("new_limit", newLimit).
				Msg("concurrency limit updated via hot-reload")
		}, nil
	})

	return svc, nil
}
