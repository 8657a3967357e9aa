// Package metrics exposes Prometheus instrumentation for the reconciler.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "madhabits"
	subsystem = "reconciler"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeQueued   = "queued"
	OutcomeRollback = "rollback"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// Sync trigger labels.
const (
	TriggerManual    = "manual"
	TriggerInterval  = "interval"
	TriggerReconnect = "reconnect"
	TriggerSignIn    = "sign_in"
	TriggerStart     = "start"
)

type Metrics struct {
	// MutationsTotal counts local mutations by operation and outcome.
	MutationsTotal *prometheus.CounterVec

	// SyncsTotal counts full synchronizations by trigger and outcome.
	SyncsTotal *prometheus.CounterVec

	SyncDurationSeconds prometheus.Histogram

	// PendingMutations is the number of in-flight optimistic mutations.
	PendingMutations prometheus.Gauge

	// OutboxDepth is the number of mutations queued while offline.
	OutboxDepth prometheus.Gauge

	// Online is 1 while the remote backend is reachable.
	Online prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg
// registers nothing, which is what tests usually want.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "mutations_total",
				Help:      "Total habit mutations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		SyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "syncs_total",
				Help:      "Total synchronizations with the remote backend by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		SyncDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sync_duration_seconds",
				Help:      "Duration of full synchronizations in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		PendingMutations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pending_mutations",
				Help:      "Optimistic mutations awaiting remote confirmation",
			},
		),
		OutboxDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "outbox_depth",
				Help:      "Mutations queued for replay while offline",
			},
		),
		Online: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "online",
				Help:      "Whether the remote backend is reachable (1) or not (0)",
			},
		),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MutationsTotal,
		m.SyncsTotal,
		m.SyncDurationSeconds,
		m.PendingMutations,
		m.OutboxDepth,
		m.Online,
	}
}

// RecordMutation records the outcome of one mutation.
func (m *Metrics) RecordMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordSync records a synchronization attempt and how long it took.
func (m *Metrics) RecordSync(trigger, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncsTotal.WithLabelValues(trigger, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.SyncDurationSeconds.Observe(d.Seconds())
	}
}

func (m *Metrics) MutationStarted() {
	if m == nil {
		return
	}
	m.PendingMutations.Inc()
}

func (m *Metrics) MutationFinished() {
	if m == nil {
		return
	}
	m.PendingMutations.Dec()
}

func (m *Metrics) SetOutboxDepth(n int) {
	if m == nil {
		return
	}
	m.OutboxDepth.Set(float64(n))
}

func (m *Metrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	if online {
		m.Online.Set(1)
		return
	}
	m.Online.Set(0)
}
