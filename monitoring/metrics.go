// Package monitoring exposes Prometheus metrics for the supervision
// core.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pipeline metrics. A nil *Metrics is valid and every
// method on it is a no-op, so metrics stay optional.
type Metrics struct {
	SpawnsTotal        prometheus.Counter
	SpawnFailures      prometheus.Counter
	ChildrenActive     prometheus.Gauge
	GroupTriggers      *prometheus.CounterVec
	PlaybackSteps      *prometheus.CounterVec
	StepFailures       prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics creates a metrics collector registered against reg. A nil
// registerer leaves the collectors unregistered, which keeps repeated
// construction safe in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SpawnsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowgraph_spawns_total",
			Help: "Children spawned by spec application",
		}),
		SpawnFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowgraph_spawn_failures_total",
			Help: "Spawn attempts that failed",
		}),
		ChildrenActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flowgraph_children_active",
			Help: "Live children in the pipeline",
		}),
		GroupTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_crash_group_triggers_total",
			Help: "Crash-group termination waves by policy",
		}, []string{"policy"}),
		PlaybackSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_playback_steps_total",
			Help: "Completed single-step playback transitions by target state",
		}, []string{"to"}),
		StepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowgraph_playback_step_failures_total",
			Help: "Playback steps that failed to gather every acknowledgment",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_notifications_total",
			Help: "Notifications routed by kind",
		}, []string{"kind"}),
	}
}

// ObserveSpawn records n successful spawns.
func (m *Metrics) ObserveSpawn(n int) {
	if m == nil {
		return
	}
	m.SpawnsTotal.Add(float64(n))
	m.ChildrenActive.Add(float64(n))
}

// ObserveSpawnFailure records one failed spawn attempt.
func (m *Metrics) ObserveSpawnFailure() {
	if m == nil {
		return
	}
	m.SpawnFailures.Inc()
}

// ObserveChildGone records one child leaving the pipeline.
func (m *Metrics) ObserveChildGone() {
	if m == nil {
		return
	}
	m.ChildrenActive.Dec()
}

// ObserveGroupTrigger records one crash-group termination wave.
func (m *Metrics) ObserveGroupTrigger(policy string) {
	if m == nil {
		return
	}
	m.GroupTriggers.WithLabelValues(policy).Inc()
}

// ObserveStep records one completed playback step.
func (m *Metrics) ObserveStep(to string) {
	if m == nil {
		return
	}
	m.PlaybackSteps.WithLabelValues(to).Inc()
}

// ObserveStepFailure records one failed playback step.
func (m *Metrics) ObserveStepFailure() {
	if m == nil {
		return
	}
	m.StepFailures.Inc()
}

// ObserveNotification records one routed notification.
func (m *Metrics) ObserveNotification(kind string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind).Inc()
}
