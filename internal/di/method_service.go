package di

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/method"
	"github.com/omarluq/multilogin/internal/registry"
)

// TableStage prepares a subscriber for a new method table. The returned
// commit installs it; an error keeps the current table everywhere.
type TableStage func(*method.Table) (commit func(), err error)

// MethodService holds the resolved login method table. A config reload
// resolves a new table; if resolution fails the current table stays.
type MethodService struct {
	table     atomic.Pointer[method.Table]
	registry  *registry.Registry
	tracker   *HealthTrackerService
	logger    *zerolog.Logger
	listeners []TableStage
	mu        sync.Mutex
}

// NewMethods resolves the login section of the initial configuration.
// The registry is frozen first: names cannot change after startup.
func NewMethods(i do.Injector) (*MethodService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	reg := do.MustInvoke[*registry.Registry](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	reg.Freeze()

	svc := &MethodService{
		registry: reg,
		tracker:  trackerSvc,
		logger:   loggerSvc.Logger,
	}

	table, err := svc.resolve(cfgSvc.Get())
	if err != nil {
		return nil, err
	}
	svc.table.Store(table)

	cfgSvc.AddStage("login", svc.prepare)

	return svc, nil
}

// Get returns the current table.
func (s *MethodService) Get() *method.Table {
	return s.table.Load()
}

// OnSwap subscribes fn to table changes. Every subscriber prepares the new
// table before any of them commits.
func (s *MethodService) OnSwap(fn TableStage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *MethodService) resolve(cfg *config.Config) (*method.Table, error) {
	return method.Resolve(cfg.Login, s.registry, method.WithTracker(s.tracker.Tracker))
}

// prepare resolves the login section of cfg and readies every subscriber.
func (s *MethodService) prepare(cfg *config.Config) (func(), error) {
	table, err := s.resolve(cfg)
	if err != nil {
		event := s.logger.Error().Err(err)
		var cfgErr *method.ConfigurationError
		if errors.As(err, &cfgErr) {
			event = event.Strs("problems", cfgErr.Problems)
		}
		event.Msg("login methods not reloaded, keeping previous table")
		return nil, err
	}

	s.mu.Lock()
	listeners := append([]TableStage(nil), s.listeners...)
	s.mu.Unlock()

	commits := make([]func(), 0, len(listeners))
	for _, fn := range listeners {
		commit, err := fn(table)
		if err != nil {
			s.logger.Error().Err(err).Msg("login routes rejected new table, keeping previous")
			return nil, err
		}
		commits = append(commits, commit)
	}

	return func() {
		for _, commit := range commits {
			commit()
		}
		s.table.Store(table)
		s.logger.Info().Int("methods", table.Len()).Msg("login methods reloaded")
	}, nil
}
