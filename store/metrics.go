package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes the collectors when no namespace is given.
const DefaultNamespace = "qstate"

const (
	outcomeApplied = "applied"
	outcomeNoop    = "noop"
	outcomeStale   = "stale"
)

// Metrics groups the collectors exported by the store and requester.
type Metrics struct {
	Actions           *prometheus.CounterVec
	ReduceDuration    prometheus.Histogram
	InFlight          *prometheus.GaugeVec
	RequestErrors     *prometheus.CounterVec
	RestoreRejections *prometheus.CounterVec
	Persisted         *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg under namespace. A nil reg
// yields unregistered collectors.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)
	return &Metrics{
		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by type and outcome (applied, noop, stale).",
		}, []string{"type", "outcome"}),
		ReduceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reduce_duration_seconds",
			Help:      "Time spent reducing one action.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14),
		}),
		InFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Network requests currently running, by kind.",
		}, []string{"kind"}),
		RequestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Failed network requests, by kind.",
		}, []string{"kind"}),
		RestoreRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_rejections_total",
			Help:      "Persisted documents or scopes discarded on restore.",
		}, []string{"document"}),
		Persisted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_persisted_total",
			Help:      "Snapshot writes by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) observeAction(actionType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(actionType, outcome).Inc()
	m.ReduceDuration.Observe(seconds)
}

func (m *Metrics) trackRequest(kind string) func(err error) {
	if m == nil {
		return func(error) {}
	}
	gauge := m.InFlight.WithLabelValues(kind)
	gauge.Inc()
	return func(err error) {
		gauge.Dec()
		if err != nil {
			m.RequestErrors.WithLabelValues(kind).Inc()
		}
	}
}
