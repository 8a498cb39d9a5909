package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.EventObserved("docs", "create")
	m.EventObserved("docs", "create")
	m.EventObserved("docs", "move_to")
	m.CommandStarted("docs")
	m.CommandFailed("docs", ReasonSpawn)
	m.QueueOverflowed("docs")
	m.Throttled("docs", 0.5)
	m.Throttled("docs", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("docs", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("docs", "move_to")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("docs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("docs", ReasonSpawn)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lost.WithLabelValues("docs")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.throttled.WithLabelValues("docs")))
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()

	m.WatchesSet("docs", 4)
	m.SupervisorRunning("docs", true)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.watches.WithLabelValues("docs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.running.WithLabelValues("docs")))

	m.SupervisorRunning("docs", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.running.WithLabelValues("docs")))
}

func TestMetrics_TrackInFlight(t *testing.T) {
	m := New()
	m.TrackInFlight(func() float64 { return 3 })

	expected := `
# HELP watcherd_dispatch_commands_in_flight Commands started and not yet exited
# TYPE watcherd_dispatch_commands_in_flight gauge
watcherd_dispatch_commands_in_flight 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"watcherd_dispatch_commands_in_flight"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.EventObserved("docs", "create")
		m.QueueOverflowed("docs")
		m.CommandStarted("docs")
		m.CommandFailed("docs", ReasonExit)
		m.Throttled("docs", 1)
		m.WatchesSet("docs", 1)
		m.SupervisorRunning("docs", true)
		m.TrackInFlight(func() float64 { return 0 })
	})
	assert.Nil(t, m.Registry())
}
