// Package dispatch turns resolved watch events into commands: it renders the
// job's template with quoted event fields and starts the result.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/listenupapp/watcherd/internal/errors"
	"github.com/listenupapp/watcherd/internal/id"
	"github.com/listenupapp/watcherd/internal/metrics"
	"github.com/listenupapp/watcherd/internal/moves"
	"github.com/listenupapp/watcherd/internal/ratelimit"
	"github.com/listenupapp/watcherd/internal/watcher"
)

// Options configures a Dispatcher.
type Options struct {
	Executor Executor
	Reaper   *Reaper
	Limiter  *ratelimit.KeyedRateLimiter
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Clock    func() time.Time
	NewRunID func() string

	// Job names the job; it keys the rate limiter and labels metrics.
	Job      string
	Template string
	// Shell runs commands through "Shell -c". Empty executes directly.
	Shell string
	// Wait blocks Dispatch until the command exits.
	Wait bool
}

// Dispatcher renders and starts the command of one job. It is called from
// the job's supervisor goroutine only.
type Dispatcher struct {
	opts Options
}

// New creates a dispatcher, filling unset optional dependencies.
func New(opts Options) *Dispatcher {
	if opts.Executor == nil {
		opts.Executor = OSExecutor{}
	}
	if opts.Reaper == nil {
		opts.Reaper = NewReaper()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = id.Run
	}
	return &Dispatcher{opts: opts}
}

// Render returns the command for ev without starting it.
func (d *Dispatcher) Render(ev Event, src *moves.Source) Command {
	runID := d.opts.NewRunID()
	return Command{
		Job:   d.opts.Job,
		RunID: runID,
		Line:  Render(d.opts.Template, ev.Fields(src, d.opts.Clock())),
		Shell: d.opts.Shell,
		Env: []string{
			EnvJob + "=" + d.opts.Job,
			EnvRunID + "=" + runID,
		},
	}
}

// Dispatch renders and starts the command for ev. src is the resolved
// rename source of a MoveTo, or nil.
//
// A command that cannot be started is logged and counted, and the returned
// error carries CodeSpawn; callers keep going. Exit failures are only
// logged. The only other error is ctx ending while throttled.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event, src *moves.Source) (Command, error) {
	cmd := d.Render(ev, src)
	kind := (ev.Mask &^ watcher.IsDir).String()
	d.opts.Metrics.EventObserved(d.opts.Job, kind)

	if err := d.throttle(ctx); err != nil {
		return cmd, err
	}

	logger := d.opts.Logger.With("run_id", cmd.RunID)
	logger.Debug("dispatching command", "event", ev.Mask.String(), "path", ev.Path, "command", cmd.Line)

	proc, err := d.opts.Executor.Start(cmd)
	if err != nil {
		logger.Error("failed to start command", "command", cmd.Line, "error", err)
		d.opts.Metrics.CommandFailed(d.opts.Job, metrics.ReasonSpawn)
		return cmd, errors.Wrapf(err, errors.CodeSpawn, "start command for job %s", d.opts.Job)
	}
	d.opts.Metrics.CommandStarted(d.opts.Job)

	reap := func() {
		if err := proc.Wait(); err != nil {
			logger.Warn("command failed", "pid", proc.Pid(), "command", cmd.Line, "error", err)
			d.opts.Metrics.CommandFailed(d.opts.Job, metrics.ReasonExit)
			return
		}
		logger.Debug("command finished", "pid", proc.Pid())
	}

	if d.opts.Wait {
		reap()
	} else {
		d.opts.Reaper.Go(reap)
	}
	return cmd, nil
}

func (d *Dispatcher) throttle(ctx context.Context) error {
	if d.opts.Limiter == nil || !d.opts.Limiter.Limited(d.opts.Job) {
		return nil
	}
	start := time.Now()
	err := d.opts.Limiter.Wait(ctx, d.opts.Job)
	d.opts.Metrics.Throttled(d.opts.Job, time.Since(start).Seconds())
	return err
}
