package providers

import (
	"log/slog"
	"os"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/watcherd/internal/config"
	"github.com/listenupapp/watcherd/internal/dispatch"
	"github.com/listenupapp/watcherd/internal/logger"
	"github.com/listenupapp/watcherd/internal/metrics"
	"github.com/listenupapp/watcherd/internal/ratelimit"
)

// ProvideMetrics provides the Prometheus collectors.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

// ProvideLimiter provides the per-job spawn throttle.
func ProvideLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	return ratelimit.New(), nil
}

// ProvideExecutor provides the process executor. Commands share the
// daemon's stdout and stderr.
func ProvideExecutor(i do.Injector) (dispatch.Executor, error) {
	return dispatch.OSExecutor{Stdout: os.Stdout, Stderr: os.Stderr}, nil
}

// ReaperHandle wraps the reaper with a bounded shutdown wait.
type ReaperHandle struct {
	*dispatch.Reaper
	grace  time.Duration
	logger *slog.Logger
}

// Shutdown implements do.Shutdownable. Commands still running after the
// grace period are abandoned, never killed.
func (h *ReaperHandle) Shutdown() error {
	n := h.InFlight()
	if n == 0 {
		return nil
	}

	h.logger.Info("waiting for running commands", "count", n, "grace", h.grace)
	if !h.Wait(h.grace) {
		h.logger.Warn("commands still running after grace period", "count", h.InFlight())
	}
	return nil
}

// ProvideReaper provides the reaper shared by all jobs.
func ProvideReaper(i do.Injector) (*ReaperHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	reaper := dispatch.NewReaper()
	m.TrackInFlight(func() float64 { return float64(reaper.InFlight()) })

	return &ReaperHandle{
		Reaper: reaper,
		grace:  cfg.Dispatch.ShutdownGrace,
		logger: log.Logger,
	}, nil
}
