// Package di provides dependency injection using samber/do v2.
// It creates and configures the container that assembles a multilogin server.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/omarluq/multilogin/internal/registry"
)

// ConfigPathKey is the named key for the config path string.
const ConfigPathKey = "config.path"

// Container wraps the do.Injector with multilogin specific configuration.
type Container struct {
	injector *do.RootScope
}

// NewContainer creates the container for the config file at configPath.
// reg holds the application's verifiers and handlers; it is frozen when the
// login methods are first resolved.
func NewContainer(configPath string, reg *registry.Registry) (*Container, error) {
	if reg == nil {
		return nil, fmt.Errorf("di: %w", registry.ErrNil)
	}

	injector := do.New()
	do.ProvideNamedValue(injector, ConfigPathKey, configPath)
	do.ProvideValue(injector, reg)

	RegisterSingletons(injector)

	return &Container{injector: injector}, nil
}

// Injector returns the underlying do.Injector for service resolution.
func (c *Container) Injector() *do.RootScope {
	return c.injector
}

// Invoke resolves a service from the container.
func Invoke[T any](c *Container) (T, error) {
	return do.Invoke[T](c.injector)
}

// MustInvoke resolves a service from the container or panics.
// Use this only during application startup where errors are fatal.
func MustInvoke[T any](c *Container) T {
	return do.MustInvoke[T](c.injector)
}

// Shutdown shuts down all services in reverse order of initialization.
func (c *Container) Shutdown() error {
	report := c.injector.Shutdown()
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown failed: %s", report.Error())
	}
	return nil
}

// ShutdownWithContext shuts down with context for timeout control.
func (c *Container) ShutdownWithContext(ctx context.Context) error {
	done := make(chan *do.ShutdownReport, 1)
	go func() {
		done <- c.injector.ShutdownWithContext(ctx)
	}()

	select {
	case report := <-done:
		if report != nil && !report.Succeed {
			return fmt.Errorf("shutdown failed: %s", report.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// HealthCheck resolves the services a server needs, so configuration and
// login method errors surface before listening.
func (c *Container) HealthCheck() error {
	if _, err := do.Invoke[*ConfigService](c.injector); err != nil {
		return fmt.Errorf("config service unhealthy: %w", err)
	}
	if _, err := do.Invoke[*MethodService](c.injector); err != nil {
		return fmt.Errorf("login methods unhealthy: %w", err)
	}
	return nil
}
