package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
//  1. Config (no dependencies)
//  2. Logger (depends on Config)
//  3. HealthTracker (depends on Config, Logger)
//  4. Methods (depends on Config, Registry, HealthTracker)
//  5. Limiter (depends on Config)
//  6. Audit (depends on Config, Logger)
//  7. Concurrency (depends on Config)
//  8. Handler (depends on all above services)
//  9. Server (depends on Handler, Config)
//
// The *registry.Registry is provided by NewContainer.
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewHealthTracker)
	do.Provide(i, NewMethods)
	do.Provide(i, NewLimiter)
	do.Provide(i, NewAudit)
	do.Provide(i, NewConcurrencyService)
	do.Provide(i, NewHandler)
	do.Provide(i, NewHTTPServer)
}
