// Package providers contains dependency injection providers for the watch daemon.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/watcherd/internal/config"
	"github.com/listenupapp/watcherd/internal/logger"
)

// ProvideConfig provides the daemon configuration, loaded from the
// command-line flags registered in the container.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	flags := do.MustInvoke[config.Flags](i)
	return config.LoadConfig(flags)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("starting watcherd",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"jobs_file", cfg.Jobs.Path,
		"shell", cfg.Dispatch.Shell,
	)

	return log, nil
}
