// Package supervisor runs watch jobs. Each job gets one Supervisor that owns
// the job's watch tree and rename correlator, pumps native events, and hands
// matching events to the job's dispatcher. A Manager runs all of them under
// a suture supervisor.
package supervisor

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/listenupapp/watcherd/internal/dispatch"
	"github.com/listenupapp/watcherd/internal/errors"
	"github.com/listenupapp/watcherd/internal/job"
	"github.com/listenupapp/watcherd/internal/metrics"
	"github.com/listenupapp/watcherd/internal/moves"
	"github.com/listenupapp/watcherd/internal/ratelimit"
	"github.com/listenupapp/watcherd/internal/watcher"
)

// State is the lifecycle position of a Supervisor.
type State int32

// Supervisor states. Stopped is terminal.
const (
	StateInstalled State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInstalled:
		return "installed"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrNoWatches is the cause when every watch of a job has been retired,
// typically because the watch root was deleted or unmounted.
var ErrNoWatches = errors.New("no directories left to watch")

// Options carries the dependencies shared by all supervisors.
type Options struct {
	Executor dispatch.Executor
	Reaper   *dispatch.Reaper
	Limiter  *ratelimit.KeyedRateLimiter
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Clock    func() time.Time
	NewRunID func() string
	// Shell runs the commands of jobs with shell enabled.
	Shell string
}

// Status is a point-in-time view of a Supervisor.
type Status struct {
	Name          string `json:"name"`
	Root          string `json:"root"`
	State         string `json:"state"`
	Error         string `json:"error,omitempty"`
	Events        string `json:"events"`
	Watches       int64  `json:"watches"`
	PendingMoves  int64  `json:"pending_moves"`
	Dispatched    uint64 `json:"dispatched"`
	SpawnFailures uint64 `json:"spawn_failures"`
	Recursive     bool   `json:"recursive"`
}

// Supervisor runs one job. Its tree, correlator and dispatcher are used
// only from the Serve goroutine; the atomics mirror their state for Status.
type Supervisor struct {
	job        *job.Job
	notifier   watcher.Notifier
	tree       *watcher.Tree
	moves      *moves.Correlator
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	done       chan struct{}

	lastErr    atomic.Pointer[string]
	dispatched atomic.Uint64
	failures   atomic.Uint64
	watches    atomic.Int64
	pending    atomic.Int64
	state      atomic.Int32
}

// New creates a supervisor for j reading events from n. The supervisor
// takes ownership of n.
func New(j *job.Job, n watcher.Notifier, opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shell := ""
	if j.Shell {
		shell = opts.Shell
	}

	return &Supervisor{
		job:      j,
		notifier: n,
		tree:     watcher.NewTree(n, j.Root, j.NativeMask(), j.Recursive, j.Exclude, logger),
		moves:    moves.New(),
		dispatcher: dispatch.New(dispatch.Options{
			Executor: opts.Executor,
			Reaper:   opts.Reaper,
			Limiter:  opts.Limiter,
			Metrics:  opts.Metrics,
			Logger:   logger,
			Clock:    opts.Clock,
			NewRunID: opts.NewRunID,
			Job:      j.Name,
			Template: j.Command,
			Shell:    shell,
			Wait:     j.Wait,
		}),
		metrics: opts.Metrics,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Install registers the job's watches. It must be called once, before Serve.
func (s *Supervisor) Install() error {
	if s.State() != StateInstalled {
		return errors.Internalf("job %q: install after start", s.job.Name)
	}
	if err := s.tree.Install(); err != nil {
		return errors.Wrapf(err, errors.CodeWatch, "job %q", s.job.Name)
	}
	s.syncWatches()
	s.logger.Info("job installed", "root", s.job.Root, "events", s.job.Mask.String(),
		"recursive", s.job.Recursive, "watches", s.tree.Len())
	return nil
}

// Serve implements suture.Service. It consumes events until ctx is done or
// the event stream fails; a Supervisor is never restarted.
func (s *Supervisor) Serve(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateInstalled), int32(StateRunning)) {
		return suture.ErrDoNotRestart
	}
	defer s.stop()

	s.metrics.SupervisorRunning(s.job.Name, true)
	s.logger.Debug("job running")

	for {
		ev, err := s.notifier.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("job stopping")
				return ctx.Err()
			}
			return s.fail(errors.Wrap(err, errors.CodeStream, "read events"))
		}

		if err := s.handle(ctx, ev); err != nil {
			return s.fail(err)
		}
	}
}

// handle processes one native event: bookkeeping, then dispatch, then
// tree extension, in that order.
func (s *Supervisor) handle(ctx context.Context, raw watcher.Event) error {
	// A directory rename inside the tree queues its MoveTo right after the
	// MoveFrom. Anything else means the detached directories left the tree.
	if !(raw.Mask.Has(watcher.MoveTo) && raw.IsDir()) {
		if s.tree.PruneDetached() > 0 {
			s.syncWatches()
		}
	}

	if raw.Mask.Has(watcher.Overflow) {
		s.logger.Warn("event queue overflowed, events were lost")
		s.metrics.QueueOverflowed(s.job.Name)
		return nil
	}

	node, ok := s.tree.Lookup(raw.WD)
	if !ok {
		s.logger.Debug("event for unknown watch", "wd", raw.WD, "mask", raw.Mask.String())
		return nil
	}

	if raw.Mask.Has(watcher.Ignored) {
		s.tree.Forget(raw.WD)
		s.syncWatches()
		if s.tree.Len() == 0 {
			return errors.Wrapf(ErrNoWatches, errors.CodeStream, "watch on %s retired", node.Path)
		}
		return nil
	}

	if s.tree.Detached(raw.WD) {
		s.logger.Debug("event from moved directory", "path", node.Path, "name", raw.Name)
		return nil
	}

	rel := s.tree.RelativePath(node, raw.Name)
	if s.job.Exclude.Excluded(rel) {
		return nil
	}

	ev := dispatch.Event{
		WatchedDir:   node.Path,
		Path:         filepath.Join(node.Path, raw.Name),
		RelativePath: rel,
		Mask:         raw.Mask,
		Cookie:       raw.Cookie,
	}

	if raw.Mask.Has(watcher.MoveFrom) && raw.Cookie != 0 && s.job.Mask.Has(watcher.MoveTo) {
		s.moves.ObserveMoveFrom(raw.Cookie, moves.Source{Path: ev.Path, RelativePath: rel})
	}

	if s.job.Wants(raw.Mask) {
		var src *moves.Source
		if raw.Mask.Has(watcher.MoveTo) && raw.Cookie != 0 {
			if found, ok := s.moves.ResolveMoveTo(raw.Cookie); ok {
				src = &found
			}
		}

		s.dispatched.Add(1)
		if _, err := s.dispatcher.Dispatch(ctx, ev, src); err != nil && errors.Is(err, errors.ErrSpawn) {
			s.failures.Add(1)
		}
	}
	s.pending.Store(int64(s.moves.Len()))

	if s.job.Recursive && raw.IsDir() {
		switch {
		case raw.Mask.Has(watcher.Create | watcher.MoveTo):
			if _, err := s.tree.OnDirectoryCreated(node, raw.Name); err != nil {
				s.logger.Warn("failed to watch new directory", "path", ev.Path, "error", err)
			}
			s.syncWatches()
		case raw.Mask.Has(watcher.MoveFrom):
			s.tree.Detach(rel)
		}
	}
	return nil
}

// fail records err and wraps it so suture does not restart the job.
func (s *Supervisor) fail(err error) error {
	msg := err.Error()
	s.lastErr.Store(&msg)
	s.logger.Error("job stopped", "error", err)
	return noRestart(err)
}

func (s *Supervisor) stop() {
	s.state.Store(int32(StateStopped))
	if err := s.notifier.Close(); err != nil {
		s.logger.Debug("failed to close notifier", "error", err)
	}
	s.metrics.SupervisorRunning(s.job.Name, false)
	close(s.done)
}

func (s *Supervisor) syncWatches() {
	n := s.tree.Len()
	s.watches.Store(int64(n))
	s.metrics.WatchesSet(s.job.Name, n)
}

// Name returns the job name.
func (s *Supervisor) Name() string {
	return s.job.Name
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Done is closed once the supervisor has stopped.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Status returns a snapshot for reporting. It is safe to call from any
// goroutine.
func (s *Supervisor) Status() Status {
	st := Status{
		Name:          s.job.Name,
		Root:          s.job.Root,
		State:         s.State().String(),
		Events:        s.job.Mask.String(),
		Recursive:     s.job.Recursive,
		Watches:       s.watches.Load(),
		PendingMoves:  s.pending.Load(),
		Dispatched:    s.dispatched.Load(),
		SpawnFailures: s.failures.Load(),
	}
	if msg := s.lastErr.Load(); msg != nil {
		st.Error = *msg
	}
	return st
}

// String names the service in suture events.
func (s *Supervisor) String() string {
	return "job:" + s.job.Name
}

// noRestart wraps err so that errors.Is(err, suture.ErrDoNotRestart) holds
// while keeping err's own chain.
func noRestart(err error) error {
	return &noRestartErr{err: err}
}

type noRestartErr struct {
	err error
}

func (e *noRestartErr) Error() string { return e.err.Error() }
func (e *noRestartErr) Unwrap() error { return e.err }

func (e *noRestartErr) Is(target error) bool {
	return target == suture.ErrDoNotRestart
}
