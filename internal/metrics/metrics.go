// Package metrics exposes daemon counters to Prometheus. A nil *Metrics is
// valid and records nothing, so components can be built without it in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "watcherd"

// Failure reasons for CommandFailed.
const (
	ReasonSpawn = "spawn"
	ReasonExit  = "exit"
)

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	events    *prometheus.CounterVec
	lost      *prometheus.CounterVec
	commands  *prometheus.CounterVec
	failures  *prometheus.CounterVec
	throttled *prometheus.CounterVec
	watches   *prometheus.GaugeVec
	running   *prometheus.GaugeVec
}

// New creates and registers the collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "events_total",
			Help:      "Native events dispatched, by job and event kind",
		}, []string{"job", "kind"}),
		lost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "queue_overflows_total",
			Help:      "Native event queue overflows, each losing an unknown number of events",
		}, []string{"job"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "commands_started_total",
			Help:      "Commands started",
		}, []string{"job"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "commands_failed_total",
			Help:      "Commands that could not be started or exited unsuccessfully",
		}, []string{"job", "reason"}),
		throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "throttle_seconds_total",
			Help:      "Time dispatches spent waiting on the job rate limit",
		}, []string{"job"}),
		watches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "directories",
			Help:      "Directories currently watched",
		}, []string{"job"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "running",
			Help:      "Whether the job's supervisor is consuming events (1) or not (0)",
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		m.events, m.lost, m.commands, m.failures, m.throttled, m.watches, m.running,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// EventObserved counts one dispatched event.
func (m *Metrics) EventObserved(job, kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(job, kind).Inc()
}

// QueueOverflowed counts one native queue overflow.
func (m *Metrics) QueueOverflowed(job string) {
	if m == nil {
		return
	}
	m.lost.WithLabelValues(job).Inc()
}

// CommandStarted counts one started command.
func (m *Metrics) CommandStarted(job string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(job).Inc()
}

// CommandFailed counts one failed command; reason is ReasonSpawn or ReasonExit.
func (m *Metrics) CommandFailed(job, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(job, reason).Inc()
}

// Throttled adds time spent waiting for the rate limit.
func (m *Metrics) Throttled(job string, seconds float64) {
	if m == nil || seconds <= 0 {
		return
	}
	m.throttled.WithLabelValues(job).Add(seconds)
}

// WatchesSet records the number of live watches for job.
func (m *Metrics) WatchesSet(job string, n int) {
	if m == nil {
		return
	}
	m.watches.WithLabelValues(job).Set(float64(n))
}

// SupervisorRunning records whether the job's supervisor is running.
func (m *Metrics) SupervisorRunning(job string, running bool) {
	if m == nil {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	m.running.WithLabelValues(job).Set(v)
}

// TrackInFlight registers a gauge reading the number of commands that have
// not exited yet.
func (m *Metrics) TrackInFlight(fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "commands_in_flight",
		Help:      "Commands started and not yet exited",
	}, fn))
}
