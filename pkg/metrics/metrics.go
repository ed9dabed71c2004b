// Package metrics exposes appwarden's Prometheus instrumentation. Metrics
// register on the default registry; the status server serves them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// lifecycleStates enumerates the one-hot state gauge labels. They mirror the
// supervisor's lifecycle states and are part of the metrics surface.
var lifecycleStates = []string{"starting", "healthy", "unhealthy", "terminated"}

var (
	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appwarden_probes_total",
			Help: "Total liveness probes by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	probeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appwarden_probe_duration_seconds",
			Help:    "Duration of liveness probes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	lifecycleState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "appwarden_lifecycle_state",
			Help: "Current lifecycle state, one-hot per state label",
		},
		[]string{"service", "state"},
	)

	stateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appwarden_state_transitions_total",
			Help: "Total lifecycle state transitions by edge",
		},
		[]string{"service", "from", "to"},
	)

	serviceUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "appwarden_service_up",
			Help: "1 while the supervised service process is running",
		},
		[]string{"service"},
	)
)

// RecordProbe counts one probe outcome and observes its latency.
func RecordProbe(service string, healthy bool, latency time.Duration) {
	outcome := "failure"
	if healthy {
		outcome = "success"
	}
	probesTotal.WithLabelValues(service, outcome).Inc()
	probeDuration.WithLabelValues(service).Observe(latency.Seconds())
}

// SetLifecycleState flips the one-hot state gauge to the given state.
func SetLifecycleState(service, state string) {
	for _, s := range lifecycleStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		lifecycleState.WithLabelValues(service, s).Set(value)
	}
}

// RecordTransition counts one state machine edge.
func RecordTransition(service, from, to string) {
	stateTransitions.WithLabelValues(service, from, to).Inc()
}

// SetServiceUp records whether the service process is currently running.
func SetServiceUp(service string, up bool) {
	value := 0.0
	if up {
		value = 1.0
	}
	serviceUp.WithLabelValues(service).Set(value)
}
