package config

import "sync/atomic"

// Runtime provides atomic access to configuration for hot-reload support.
// Readers never block; in-flight requests keep the config they loaded
// while new requests observe the latest stored value.
//
//	runtime := config.NewRuntime(initialConfig)
//	cfg := runtime.Get()
//	runtime.Store(newConfig) // from the watcher callback
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a new Runtime holding the initial configuration.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store atomically replaces the configuration.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)
