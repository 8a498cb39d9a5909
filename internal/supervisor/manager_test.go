package supervisor_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/watcherd/internal/dispatch/dispatchtest"
	"github.com/listenupapp/watcherd/internal/errors"
	"github.com/listenupapp/watcherd/internal/job"
	"github.com/listenupapp/watcherd/internal/logger"
	"github.com/listenupapp/watcherd/internal/ratelimit"
	"github.com/listenupapp/watcherd/internal/supervisor"
	"github.com/listenupapp/watcherd/internal/watcher"
	"github.com/listenupapp/watcherd/internal/watcher/watchertest"
)

type fakeNotifiers struct {
	mu       sync.Mutex
	created  []*watchertest.Notifier
	failures map[int]string
}

func (f *fakeNotifiers) factory(*slog.Logger) (watcher.Notifier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := watchertest.New()
	if path, ok := f.failures[len(f.created)]; ok {
		n.FailAdd(path, os.ErrPermission)
	}
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeNotifiers) get(i int) *watchertest.Notifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[i]
}

func namedJob(t *testing.T, name, root string) *job.Job {
	t.Helper()
	j, err := job.New(name, job.Config{
		Watch:   root,
		Events:  job.List{"create"},
		Command: "echo ${full-path}",
		Rate:    5,
	})
	require.NoError(t, err)
	return j
}

func newManager(f *fakeNotifiers, limiter *ratelimit.KeyedRateLimiter) *supervisor.Manager {
	return supervisor.NewManager(supervisor.ManagerOptions{
		Options: supervisor.Options{
			Executor: &dispatchtest.Executor{},
			Limiter:  limiter,
			Shell:    "/bin/sh",
		},
		NewNotifier: f.factory,
		Logger:      &logger.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))},
	})
}

func TestManager_InstallSkipsFailedJobs(t *testing.T) {
	good, bad := t.TempDir(), t.TempDir()
	f := &fakeNotifiers{failures: map[int]string{1: bad}}
	limiter := ratelimit.New()
	m := newManager(f, limiter)

	require.NoError(t, m.Install([]*job.Job{namedJob(t, "good", good), namedJob(t, "bad", bad)}))

	statuses := m.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "good", statuses[0].Name)
	assert.Equal(t, "installed", statuses[0].State)
	assert.True(t, f.get(1).Closed(), "notifier of a failed job is released")
	assert.True(t, limiter.Limited("good"))
}

func TestManager_InstallAllFail(t *testing.T) {
	root := t.TempDir()
	f := &fakeNotifiers{failures: map[int]string{0: root}}
	m := newManager(f, nil)

	err := m.Install([]*job.Job{namedJob(t, "only", root)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
	assert.Empty(t, m.Statuses())

	assert.True(t, errors.Is(m.Serve(context.Background()), errors.ErrConfig))
}

func TestManager_ServeReturnsNilOnCancel(t *testing.T) {
	f := &fakeNotifiers{}
	m := newManager(f, nil)
	require.NoError(t, m.Install([]*job.Job{namedJob(t, "a", t.TempDir()), namedJob(t, "b", t.TempDir())}))

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- m.Serve(ctx) }()

	require.Eventually(t, func() bool { return m.Running() == 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not return")
	}
	assert.Zero(t, m.Running())
}

func TestManager_AllStopped(t *testing.T) {
	f := &fakeNotifiers{}
	m := newManager(f, nil)
	require.NoError(t, m.Install([]*job.Job{namedJob(t, "a", t.TempDir()), namedJob(t, "b", t.TempDir())}))

	result := make(chan error, 1)
	go func() { result <- m.Serve(context.Background()) }()
	require.Eventually(t, func() bool { return m.Running() == 2 }, time.Second, time.Millisecond)

	f.get(0).Fail(io.ErrUnexpectedEOF)
	require.Eventually(t, func() bool { return m.Running() == 1 }, time.Second, time.Millisecond)

	st, ok := m.Status("a")
	require.True(t, ok)
	assert.Equal(t, "stopped", st.State)

	f.get(1).Fail(io.ErrClosedPipe)

	select {
	case err := <-result:
		require.Error(t, err)
		assert.ErrorIs(t, err, supervisor.ErrAllStopped)
		assert.Contains(t, err.Error(), "a: ")
		assert.Contains(t, err.Error(), "b: ")
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not return")
	}
}

func TestManager_Status(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	m := newManager(&fakeNotifiers{}, nil)
	require.NoError(t, m.Install([]*job.Job{namedJob(t, "docs", root)}))

	st, ok := m.Status("docs")
	require.True(t, ok)
	assert.Equal(t, root, st.Root)
	assert.Equal(t, "IN_CREATE", st.Events)
	assert.Equal(t, int64(1), st.Watches, "non-recursive job watches only its root")

	_, ok = m.Status("missing")
	assert.False(t, ok)
}
