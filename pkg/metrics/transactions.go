package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransactionMetrics records the outcome of contract transactions.
type TransactionMetrics struct {
	duration *prometheus.HistogramVec
	commits  *prometheus.CounterVec
	aborts   *prometheus.CounterVec
}

// NewTransactionMetrics registers the transaction metrics on the provided registerer.
func NewTransactionMetrics(reg prometheus.Registerer) *TransactionMetrics {
	if reg == nil {
		return &TransactionMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tx_duration_seconds",
		Help:    "Duration of contract transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_commits",
		Help: "Committed contract transactions.",
	}, []string{"operation"})
	aborts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_aborts",
		Help: "Aborted contract transactions by error code.",
	}, []string{"operation", "code"})
	reg.MustRegister(duration, commits, aborts)
	return &TransactionMetrics{
		duration: duration,
		commits:  commits,
		aborts:   aborts,
	}
}

// ObserveDuration records the duration for the named operation.
func (t *TransactionMetrics) ObserveDuration(operation string, duration time.Duration) {
	if t == nil || t.duration == nil {
		return
	}
	t.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncCommit increments the commit counter for the named operation.
func (t *TransactionMetrics) IncCommit(operation string) {
	if t == nil || t.commits == nil {
		return
	}
	t.commits.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncAbort increments the abort counter for the named operation and code.
func (t *TransactionMetrics) IncAbort(operation, code string) {
	if t == nil || t.aborts == nil {
		return
	}
	t.aborts.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
