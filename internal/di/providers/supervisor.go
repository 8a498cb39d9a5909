package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/watcherd/internal/config"
	"github.com/listenupapp/watcherd/internal/dispatch"
	"github.com/listenupapp/watcherd/internal/logger"
	"github.com/listenupapp/watcherd/internal/metrics"
	"github.com/listenupapp/watcherd/internal/ratelimit"
	"github.com/listenupapp/watcherd/internal/supervisor"
)

// ProvideManager provides the job manager with every loadable job
// installed. It fails when no job could be installed.
func ProvideManager(i do.Injector) (*supervisor.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	jobs := do.MustInvoke[*Jobs](i)
	reaper := do.MustInvoke[*ReaperHandle](i)

	m := supervisor.NewManager(supervisor.ManagerOptions{
		Options: supervisor.Options{
			Executor: do.MustInvoke[dispatch.Executor](i),
			Reaper:   reaper.Reaper,
			Limiter:  do.MustInvoke[*ratelimit.KeyedRateLimiter](i),
			Metrics:  do.MustInvoke[*metrics.Metrics](i),
			Shell:    cfg.Dispatch.Shell,
		},
		Logger: log,
	})

	if err := m.Install(jobs.Jobs); err != nil {
		return nil, err
	}
	return m, nil
}
