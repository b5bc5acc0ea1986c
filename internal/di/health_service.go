package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/multilogin/internal/health"
)

// HealthTrackerService wraps the verifier circuit breakers for DI.
// Tracker is nil when health.enabled is false; a nil tracker guards nothing.
type HealthTrackerService struct {
	Tracker *health.Tracker
}

// NewHealthTracker creates the health tracker from configuration.
// Breaker settings are read once; breakers outlive table reloads.
func NewHealthTracker(i do.Injector) (*HealthTrackerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	cfg := cfgSvc.Get().Health
	if !cfg.Enabled {
		return &HealthTrackerService{}, nil
	}

	return &HealthTrackerService{
		Tracker: health.NewTracker(cfg.CircuitBreaker, loggerSvc.Logger),
	}, nil
}
