package middleware

import (
	"strconv"
	"time"

	"NavGuard/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	size     *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 20},
			},
			[]string{"route", "method", "status", "class"},
		),
		inFlight: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests",
			},
			[]string{"route", "method"},
		),
		size: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000},
			},
			[]string{"route", "method", "status", "class"},
		),
	}
}

// Metrics records request metrics labelled by the registered route template,
// and logs 5xx responses and requests slower than slowThreshold.
func Metrics(reg prometheus.Registerer, l *logger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	m := newHTTPMetrics(reg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := routeLabel(c)
			method := c.Request().Method

			m.inFlight.WithLabelValues(route, method).Inc()
			defer m.inFlight.WithLabelValues(route, method).Dec()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			code := c.Response().Status
			status := strconv.Itoa(code)
			class := statusClass(code)
			duration := time.Since(start)

			m.requests.WithLabelValues(route, method, status).Inc()
			m.duration.WithLabelValues(route, method, status, class).Observe(duration.Seconds())
			m.size.WithLabelValues(route, method, status, class).Observe(float64(c.Response().Size))

			if l == nil {
				return nil
			}
			fields := []logger.Field{
				logger.String("route", route),
				logger.String("method", method),
				logger.String("status", status),
				logger.Duration("duration_ms", duration),
				logger.Int("bytes", int(c.Response().Size)),
			}
			switch {
			case code >= 500:
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && duration >= slowThreshold:
				l.Warn("http request slow", fields...)
			}
			return nil
		}
	}
}

// routeLabel uses the matched route template to keep label cardinality low.
func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
