package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/listenupapp/watcherd/internal/errors"
	"github.com/listenupapp/watcherd/internal/job"
	"github.com/listenupapp/watcherd/internal/logger"
	"github.com/listenupapp/watcherd/internal/watcher"
)

// ErrAllStopped is returned by Manager.Serve when every job has stopped on
// its own.
var ErrAllStopped = errors.New("all jobs stopped")

// serviceTimeout bounds how long suture waits for a job to return after
// cancellation.
const serviceTimeout = 10 * time.Second

// NotifierFactory creates the native notifier for one job.
type NotifierFactory func(logger *slog.Logger) (watcher.Notifier, error)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Options

	NewNotifier NotifierFactory
	Logger      *logger.Logger
}

// Manager installs jobs and runs their supervisors.
type Manager struct {
	opts        ManagerOptions
	logger      *logger.Logger
	supervisors []*Supervisor
}

// NewManager creates a manager with no jobs.
func NewManager(opts ManagerOptions) *Manager {
	if opts.NewNotifier == nil {
		opts.NewNotifier = watcher.NewNotifier
	}
	if opts.Logger == nil {
		opts.Logger = &logger.Logger{Logger: slog.Default()}
	}
	return &Manager{opts: opts, logger: opts.Logger}
}

// Install creates and installs one supervisor per job. A job that cannot
// be installed is logged and skipped; an error is returned only when no job
// could be installed.
func (m *Manager) Install(jobs []*job.Job) error {
	for _, j := range jobs {
		log := m.logger.WithJob(j.Name)

		if m.opts.Limiter != nil {
			m.opts.Limiter.Configure(j.Name, j.Rate)
		}

		n, err := m.opts.NewNotifier(log)
		if err != nil {
			log.Error("failed to create notifier", "error", err)
			continue
		}

		opts := m.opts.Options
		opts.Logger = log
		sup := New(j, n, opts)
		if err := sup.Install(); err != nil {
			log.Error("job not installed", "error", err)
			if cerr := n.Close(); cerr != nil {
				log.Debug("failed to close notifier", "error", cerr)
			}
			continue
		}
		m.supervisors = append(m.supervisors, sup)
	}

	if len(m.supervisors) == 0 {
		return errors.Configf("no jobs installed (%d configured)", len(jobs))
	}
	return nil
}

// Serve runs every installed supervisor until ctx is done. It returns nil
// on cancellation and ErrAllStopped when every job stopped by itself.
func (m *Manager) Serve(ctx context.Context) error {
	if len(m.supervisors) == 0 {
		return errors.Config("no jobs installed")
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sup := suture.New("watcherd", suture.Spec{
		EventHook: func(e suture.Event) {
			m.logger.Debug("supervisor event", "event", e.String())
		},
		Timeout:           serviceTimeout,
		PassThroughPanics: true,
	})
	for _, s := range m.supervisors {
		sup.Add(s)
	}

	go func() {
		for _, s := range m.supervisors {
			select {
			case <-s.Done():
			case <-ctx.Done():
				return
			}
		}
		cancel(ErrAllStopped)
	}()

	m.logger.Info("watching", "jobs", len(m.supervisors))
	err := sup.Serve(ctx)

	if cause := context.Cause(ctx); errors.Is(cause, ErrAllStopped) {
		return fmt.Errorf("%w: %s", ErrAllStopped, m.failures())
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Manager) failures() string {
	var msg string
	for _, s := range m.supervisors {
		st := s.Status()
		if st.Error == "" {
			continue
		}
		if msg != "" {
			msg += "; "
		}
		msg += st.Name + ": " + st.Error
	}
	return msg
}

// Statuses returns a snapshot of every installed job, in install order.
func (m *Manager) Statuses() []Status {
	out := make([]Status, len(m.supervisors))
	for i, s := range m.supervisors {
		out[i] = s.Status()
	}
	return out
}

// Status returns the snapshot of the named job.
func (m *Manager) Status(name string) (Status, bool) {
	for _, s := range m.supervisors {
		if s.Name() == name {
			return s.Status(), true
		}
	}
	return Status{}, false
}

// Running returns the number of supervisors consuming events.
func (m *Manager) Running() int {
	n := 0
	for _, s := range m.supervisors {
		if s.State() == StateRunning {
			n++
		}
	}
	return n
}
