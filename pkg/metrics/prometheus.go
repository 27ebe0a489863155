package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	submissions prometheus.Counter
	outcomes    *prometheus.CounterVec
	stale       *prometheus.CounterVec
	severity    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered into reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		submissions: f.NewCounter(
			prometheus.CounterOpts{
				Name: "navguard_analysis_submissions_total",
				Help: "Total number of analysis requests sent to the prediction service",
			},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navguard_analysis_outcomes_total",
				Help: "Terminal analysis outcomes by kind",
			},
			[]string{"kind"},
		),
		stale: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navguard_stale_settlements_total",
				Help: "Settlements discarded because a newer request was current",
			},
			[]string{"reason"},
		),
		severity: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navguard_verdict_severity_total",
				Help: "Derived verdict severity tiers",
			},
			[]string{"tier"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navguard_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "navguard_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"operation"},
		),
	}
}

// RecordSubmission counts one outbound analysis call.
func (r *Recorder) RecordSubmission() {
	r.submissions.Inc()
}

// RecordOutcome counts a terminal outcome: success or an error kind.
func (r *Recorder) RecordOutcome(kind string) {
	r.outcomes.WithLabelValues(kind).Inc()
}

// RecordStale counts a discarded settlement.
func (r *Recorder) RecordStale(reason string) {
	r.stale.WithLabelValues(reason).Inc()
}

// RecordSeverity counts a derived severity tier.
func (r *Recorder) RecordSeverity(tier string) {
	r.severity.WithLabelValues(tier).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency.
func (r *Recorder) RecordLatency(op string, d time.Duration) {
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordSubmission() {}
func (Nop) RecordOutcome(string) {}
func (Nop) RecordStale(string) {}
func (Nop) RecordSeverity(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, time.Duration) {}
