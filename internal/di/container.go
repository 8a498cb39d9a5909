// Package di provides dependency injection configuration for the watch daemon.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/watcherd/internal/config"
	"github.com/listenupapp/watcherd/internal/di/providers"
	"github.com/listenupapp/watcherd/internal/logger"
	"github.com/listenupapp/watcherd/internal/metrics"
	"github.com/listenupapp/watcherd/internal/supervisor"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer(flags config.Flags) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, flags)
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Dispatch
	do.Provide(injector, providers.ProvideLimiter)
	do.Provide(injector, providers.ProvideExecutor)
	do.Provide(injector, providers.ProvideReaper)

	// Jobs
	do.Provide(injector, providers.ProvideJobs)
	do.Provide(injector, providers.ProvideManager)

	// Server
	do.Provide(injector, providers.ProvideStatusServer)

	return injector
}

// Bootstrap initializes all services. Jobs are installed but not yet
// running; the caller serves the Manager.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*metrics.Metrics](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.ReaperHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*supervisor.Manager](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StatusServerHandle](injector); err != nil {
		return err
	}
	return nil
}
