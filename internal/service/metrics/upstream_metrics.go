package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream instruments calls to the prediction service by endpoint.
type Upstream struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

func NewUpstream(reg prometheus.Registerer) *Upstream {
	f := promauto.With(reg)
	return &Upstream{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "navguard",
				Subsystem: "predictor",
				Name:      "latency_seconds",
				Help:      "Latency of prediction service endpoints",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "navguard",
				Subsystem: "predictor",
				Name:      "errors_total",
				Help:      "Errors by prediction service endpoint",
			},
			[]string{"endpoint"},
		),
	}
}

// Observe records one call. A nil receiver is a no-op.
func (u *Upstream) Observe(endpoint string, d time.Duration, err error) {
	if u == nil {
		return
	}
	u.latency.WithLabelValues(endpoint).Observe(d.Seconds())
	if err != nil {
		u.errors.WithLabelValues(endpoint).Inc()
	}
}
