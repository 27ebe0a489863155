package verdict

import (
	"math"
	"testing"

	"NavGuard/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestDeriveHighAnomaly(t *testing.T) {
	v := Derive(models.AnalysisResult{Anomaly: true, Score: 0.08, Threshold: 0.05, Status: "Anomalous"})

	assert.Equal(t, models.LabelAnomaly, v.Label)
	assert.Equal(t, models.SeverityHigh, v.SeverityTier)
	assert.InDelta(t, 80, v.GaugePercent, 1e-9)
	assert.Equal(t, "Flag for Watch Officer", v.RecommendedAction)
}

func TestDeriveCriticalAnomalyClampsGauge(t *testing.T) {
	v := Derive(models.AnalysisResult{Anomaly: true, Score: 0.12, Threshold: 0.05})

	assert.Equal(t, models.SeverityCritical, v.SeverityTier)
	assert.Equal(t, 100.0, v.GaugePercent)
	assert.Equal(t, "Escalate to Watch Officer", v.RecommendedAction)
}

func TestDeriveNominal(t *testing.T) {
	v := Derive(models.AnalysisResult{Anomaly: false, Score: 0.02, Threshold: 0.1, Status: "Normal"})

	assert.Equal(t, models.LabelNominal, v.Label)
	assert.Equal(t, models.SeverityLow, v.SeverityTier)
	assert.InDelta(t, 10, v.GaugePercent, 1e-9)
	assert.Equal(t, "Log & Continue", v.RecommendedAction)
	assert.NotEmpty(t, v.Narrative)
}

func TestSeverityBoundary(t *testing.T) {
	// exactly twice the threshold is still HIGH
	assert.Equal(t, models.SeverityHigh, Severity(models.AnalysisResult{Anomaly: true, Score: 0.2, Threshold: 0.1}))
	assert.Equal(t, models.SeverityCritical, Severity(models.AnalysisResult{Anomaly: true, Score: 0.2000001, Threshold: 0.1}))
}

func TestNominalIsLowRegardlessOfScore(t *testing.T) {
	for _, score := range []float64{0, 0.05, 0.1, 0.3, 10, 1e9, math.Inf(1)} {
		r := models.AnalysisResult{Anomaly: false, Score: score, Threshold: 0.1}
		assert.Equal(t, models.SeverityLow, Derive(r).SeverityTier, "score=%v", score)
	}
}

func TestAnomalyBeyondTwiceThresholdIsCritical(t *testing.T) {
	for _, threshold := range []float64{0.001, 0.05, 0.1, 1, 250} {
		for _, factor := range []float64{2.0001, 2.5, 3, 10, 1000} {
			r := models.AnalysisResult{Anomaly: true, Score: threshold * factor, Threshold: threshold}
			assert.Equal(t, models.SeverityCritical, Derive(r).SeverityTier, "threshold=%v factor=%v", threshold, factor)
		}
	}
}

func TestGaugeBoundedAndMonotonic(t *testing.T) {
	for _, threshold := range []float64{1e-6, 0.05, 0.1, 1, 42} {
		prev := -1.0
		for i := 0; i <= 400; i++ {
			score := threshold * float64(i) / 100 // 0 .. 4x threshold
			g := GaugePercent(score, threshold)
			assert.GreaterOrEqual(t, g, 0.0)
			assert.LessOrEqual(t, g, 100.0)
			assert.GreaterOrEqual(t, g, prev, "threshold=%v score=%v", threshold, score)
			prev = g
		}
	}
}

func TestGaugeThresholdAtMidpoint(t *testing.T) {
	assert.InDelta(t, 50, GaugePercent(0.1, 0.1), 1e-9)
}

func TestGaugeDegenerateThreshold(t *testing.T) {
	cases := []struct {
		name      string
		score     float64
		threshold float64
		want      float64
	}{
		{"zero threshold positive score", 0.3, 0, 100},
		{"zero threshold zero score", 0, 0, 0},
		{"negative threshold positive score", 0.01, -1, 100},
		{"negative threshold negative score", -0.5, -1, 0},
		{"nan threshold", 0.2, math.NaN(), 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GaugePercent(tc.score, tc.threshold))
		})
	}
}

func TestGaugeOddScores(t *testing.T) {
	assert.Equal(t, 0.0, GaugePercent(-3, 0.1))
	assert.Equal(t, 0.0, GaugePercent(math.NaN(), 0.1))
	assert.Equal(t, 100.0, GaugePercent(math.Inf(1), 0.1))
	assert.Equal(t, 0.0, GaugePercent(5, math.Inf(1)))
}

func TestDeriveIsIdempotent(t *testing.T) {
	results := []models.AnalysisResult{
		{Anomaly: true, Score: 0.08, Threshold: 0.05},
		{Anomaly: true, Score: 0.12, Threshold: 0.05},
		{Anomaly: false, Score: 0.01, Threshold: 0.1},
		{Anomaly: true, Score: 1, Threshold: 0},
	}
	for _, r := range results {
		a, b := Derive(r), Derive(r)
		assert.Equal(t, a, b)
		assert.Equal(t, math.Float64bits(a.GaugePercent), math.Float64bits(b.GaugePercent))
	}
}
