//go:build linux

package supervisor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/watcherd/internal/dispatch/dispatchtest"
	"github.com/listenupapp/watcherd/internal/job"
	"github.com/listenupapp/watcherd/internal/supervisor"
	"github.com/listenupapp/watcherd/internal/watcher"
)

// startInotify runs j against the kernel's inotify.
func startInotify(t *testing.T, j *job.Job) (*supervisor.Supervisor, *dispatchtest.Executor) {
	t.Helper()
	n, err := watcher.NewNotifier(discard)
	require.NoError(t, err)

	exec := &dispatchtest.Executor{}
	sup := supervisor.New(j, n, supervisor.Options{
		Executor: exec,
		Logger:   discard,
		Shell:    "/bin/sh",
		NewRunID: func() string { return "run-test" },
	})
	require.NoError(t, sup.Install())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = sup.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-sup.Done()
	})

	require.Eventually(t, func() bool {
		return sup.State() == supervisor.StateRunning
	}, time.Second, time.Millisecond)
	return sup, exec
}

func waitLines(t *testing.T, exec *dispatchtest.Executor, n int) []string {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(exec.Commands()) >= n
	}, 2*time.Second, time.Millisecond, "waiting for %d commands", n)
	return exec.Lines()
}

func TestSupervisor_InotifyDirectoryRename(t *testing.T) {
	tests := []struct {
		name   string
		events string
		want   func(root string) []string
	}{
		{
			name:   "create only",
			events: "create",
			want: func(string) []string {
				return []string{"handle 'new/f' '' ''"}
			},
		},
		{
			name:   "create and move_to",
			events: "create,move_to",
			want: func(root string) []string {
				return []string{
					"handle 'new' '" + filepath.Join(root, "old") + "' 'old'",
					"handle 'new/f' '' ''",
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(root, "old", "inner"), 0o755))

			sup, exec := startInotify(t, newJob(t, root, tt.events, true))
			require.Equal(t, int64(3), sup.Status().Watches)

			require.NoError(t, os.Rename(filepath.Join(root, "old"), filepath.Join(root, "new")))
			require.NoError(t, os.WriteFile(filepath.Join(root, "new", "f"), nil, 0o644))

			want := tt.want(root)
			assert.Equal(t, want, waitLines(t, exec, len(want)))

			require.NoError(t, os.WriteFile(filepath.Join(root, "new", "inner", "g"), nil, 0o644))
			lines := waitLines(t, exec, len(want)+1)
			assert.Equal(t, "handle 'new/inner/g' '' ''", lines[len(want)])
			assert.Equal(t, int64(3), sup.Status().Watches)
		})
	}
}

func TestSupervisor_InotifyDirectoryMovedOut(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "inner"), 0o755))
	outside := filepath.Join(t.TempDir(), "sub")

	sup, exec := startInotify(t, newJob(t, root, "create", true))
	require.Equal(t, int64(3), sup.Status().Watches)

	require.NoError(t, os.Rename(filepath.Join(root, "sub"), outside))
	require.NoError(t, os.WriteFile(filepath.Join(root, "trigger"), nil, 0o644))

	assert.Equal(t, []string{"handle 'trigger' '' ''"}, waitLines(t, exec, 1))
	require.Eventually(t, func() bool {
		return sup.Status().Watches == 1
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(outside, "g"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "inner", "h"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "after"), nil, 0o644))

	assert.Equal(t, []string{"handle 'trigger' '' ''", "handle 'after' '' ''"}, waitLines(t, exec, 2))
}
