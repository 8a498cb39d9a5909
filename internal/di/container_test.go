package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/watcherd/internal/config"
	"github.com/listenupapp/watcherd/internal/di/providers"
	"github.com/listenupapp/watcherd/internal/supervisor"
)

func testFlags(t *testing.T, jobs string) config.Flags {
	t.Helper()
	for _, k := range []string{"ENV", "LOG_LEVEL", "LOG_FORMAT", "WATCHER_JOBS", "METRICS_ADDR", "SHUTDOWN_GRACE", "WATCHER_SHELL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yml")
	require.NoError(t, os.WriteFile(path, []byte(jobs), 0o600))

	return config.Flags{
		Jobs:          path,
		EnvFile:       filepath.Join(dir, ".env"),
		LogLevel:      "error",
		MetricsAddr:   "127.0.0.1:0",
		ShutdownGrace: "1s",
	}
}

func TestBootstrap(t *testing.T) {
	root := t.TempDir()
	injector := NewContainer(testFlags(t, `
docs:
  watch: `+root+`
  events: create
  command: "true"
broken:
  watch: relative/path
  events: create
  command: "true"
`))

	require.NoError(t, Bootstrap(injector))
	t.Cleanup(func() { _ = injector.Shutdown() })

	jobs := do.MustInvoke[*providers.Jobs](injector)
	assert.Len(t, jobs.Jobs, 1)
	assert.Equal(t, 1, jobs.Skipped)

	manager := do.MustInvoke[*supervisor.Manager](injector)
	st, ok := manager.Status("docs")
	require.True(t, ok)
	assert.Equal(t, "installed", st.State)

	server := do.MustInvoke[*providers.StatusServerHandle](injector)
	require.NotNil(t, server.Server)
	assert.NotEmpty(t, server.Addr())
}

func TestBootstrap_NoJobs(t *testing.T) {
	injector := NewContainer(testFlags(t, ""))
	t.Cleanup(func() { _ = injector.Shutdown() })

	assert.Error(t, Bootstrap(injector))
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	flags := testFlags(t, "")
	flags.LogLevel = "loud"
	injector := NewContainer(flags)
	t.Cleanup(func() { _ = injector.Shutdown() })

	assert.Error(t, Bootstrap(injector))
}
