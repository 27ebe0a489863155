package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordSubmission()
	r.RecordSubmission()
	r.RecordOutcome("success")
	r.RecordOutcome("timeout")
	r.RecordOutcome("timeout")
	r.RecordStale("superseded")
	r.RecordSeverity("CRITICAL")
	r.RecordError("publish")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.submissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.outcomes.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stale.WithLabelValues("superseded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.severity.WithLabelValues("CRITICAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("publish")))
}

func TestRecorderLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.RecordLatency("predict", 1500*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestRecordersAreIsolatedPerRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
