package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the custody module.
type Metrics struct {
	// Dispatched verification requests by kind
	DispatchesTotal *prometheus.CounterVec

	// Reconciliation outcomes by kind and result
	OutcomesTotal *prometheus.CounterVec

	// Live pending requests
	PendingRequests prometheus.Gauge

	// Value currently held in deposit escrow
	EscrowHeld prometheus.Gauge

	// Callback handling latency
	ReconcileLatency prometheus.Histogram
}

// New creates a Metrics instance with all custody module metrics registered.
func New() *Metrics {
	return &Metrics{
		DispatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultgate_custody_dispatches_total",
			Help: "Total verification requests dispatched by kind",
		}, []string{"kind"}),

		OutcomesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultgate_custody_outcomes_total",
			Help: "Total reconciliation outcomes by kind and result",
		}, []string{"kind", "result"}),

		PendingRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vaultgate_custody_pending_requests",
			Help: "Number of in-flight verification requests",
		}),

		EscrowHeld: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vaultgate_custody_escrow_held",
			Help: "Value currently held in deposit escrow",
		}),

		ReconcileLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vaultgate_custody_reconcile_duration_seconds",
			Help:    "Duration of outcome callback handling",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncDispatch records a dispatched request.
func (m *Metrics) IncDispatch(kind string) {
	if m != nil {
		m.DispatchesTotal.WithLabelValues(kind).Inc()
	}
}

// IncOutcome records a reconciliation outcome.
func (m *Metrics) IncOutcome(kind, result string) {
	if m != nil {
		m.OutcomesTotal.WithLabelValues(kind, result).Inc()
	}
}

// SetPending records the current pending entry count.
func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.PendingRequests.Set(float64(n))
	}
}

// SetEscrow records the current escrow total.
func (m *Metrics) SetEscrow(total uint64) {
	if m != nil {
		m.EscrowHeld.Set(float64(total))
	}
}

// ObserveReconcileLatency records callback handling duration.
func (m *Metrics) ObserveReconcileLatency(d time.Duration) {
	if m != nil {
		m.ReconcileLatency.Observe(d.Seconds())
	}
}
