package di

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/multilogin/internal/config"
)

// ConfigService wraps the loaded configuration with hot-reload support.
// Reads are lock-free; in-flight requests keep the config they loaded.
type ConfigService struct {
	config  atomic.Pointer[config.Config]
	watcher *config.Watcher
	path    string
}

// Get returns the current configuration.
func (c *ConfigService) Get() *config.Config {
	return c.config.Load()
}

// Path returns the config file path.
func (c *ConfigService) Path() string {
	return c.path
}

// AddStage subscribes a service to configuration reloads. A stage that
// rejects the file keeps every service on the current configuration.
// Without a watcher it is a no-op.
func (c *ConfigService) AddStage(name string, stage config.Stage) {
	if c.watcher == nil {
		return
	}
	c.watcher.AddStage(name, stage)
}

// StartWatching begins watching the config file for changes. Call it after
// the container is fully initialized so every service has subscribed.
// The context controls the watcher lifecycle.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads and validates the configuration and creates a watcher.
// The watcher is not started; see StartWatching.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svc := &ConfigService{path: path}
	svc.config.Store(cfg)

	watcher, err := config.NewWatcher(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
	} else {
		svc.watcher = watcher
		// Added first so later commits observe the new config via Get.
		watcher.AddStage("config", func(newCfg *config.Config) (func(), error) {
			return func() { svc.config.Store(newCfg) }, nil
		})
	}

	return svc, nil
}

var _ config.RuntimeConfig = (*ConfigService)(nil)
