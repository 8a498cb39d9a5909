package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/watcherd/internal/api"
	"github.com/listenupapp/watcherd/internal/config"
	"github.com/listenupapp/watcherd/internal/logger"
	"github.com/listenupapp/watcherd/internal/metrics"
	"github.com/listenupapp/watcherd/internal/supervisor"
)

// shutdownTimeout bounds the wait for in-flight status requests.
const shutdownTimeout = 5 * time.Second

// StatusServerHandle wraps the status server with Shutdownable. Server is
// nil when no metrics address is configured.
type StatusServerHandle struct {
	*api.Server
}

// Shutdown implements do.Shutdownable.
func (h *StatusServerHandle) Shutdown() error {
	if h.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideStatusServer provides the status and metrics server, started on
// the configured address.
func ProvideStatusServer(i do.Injector) (*StatusServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Metrics.Addr == "" {
		log.Debug("status server disabled")
		return &StatusServerHandle{}, nil
	}

	manager := do.MustInvoke[*supervisor.Manager](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	srv := api.NewServer(manager, m.Registry(), log.Logger)
	if err := srv.Start(cfg.Metrics.Addr); err != nil {
		return nil, err
	}
	return &StatusServerHandle{Server: srv}, nil
}
