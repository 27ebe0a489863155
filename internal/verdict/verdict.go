// Package verdict turns a raw AnalysisResult into the presentation model every
// dashboard surface renders. It is the only place severity and gauge values
// are computed.
package verdict

import (
	"math"

	"NavGuard/internal/domain/models"
)

// gaugeSpan is the multiple of the threshold shown as a full gauge, which puts
// the decision boundary at the midpoint.
const gaugeSpan = 2

type copyKey struct {
	anomaly bool
	tier    models.SeverityTier
}

type copyText struct {
	narrative string
	action    string
}

var copyTable = map[copyKey]copyText{
	{false, models.SeverityLow}: {
		narrative: "The vessel's behavior is consistent with standard maritime patterns for this class. No operational irregularities detected.",
		action:    "Log & Continue",
	},
	{true, models.SeverityHigh}: {
		narrative: "The vessel's kinematic signature exceeds the safety threshold. Deviations observed in Heading and SOG suggest potential irregular maneuvering.",
		action:    "Flag for Watch Officer",
	},
	{true, models.SeverityCritical}: {
		narrative: "Vessel kinematics deviate far beyond the safety threshold. High reconstruction error suggests potential spoofing or irregular maneuvering.",
		action:    "Escalate to Watch Officer",
	},
}

// Derive computes the VerdictView for r. It is pure and total.
func Derive(r models.AnalysisResult) models.VerdictView {
	tier := Severity(r)
	text, ok := copyTable[copyKey{r.Anomaly, tier}]
	if !ok {
		// unreachable with Severity as written; keep the nominal copy
		text = copyTable[copyKey{false, models.SeverityLow}]
	}

	label := models.LabelNominal
	if r.Anomaly {
		label = models.LabelAnomaly
	}

	return models.VerdictView{
		Label:             label,
		SeverityTier:      tier,
		GaugePercent:      GaugePercent(r.Score, r.Threshold),
		Narrative:         text.narrative,
		RecommendedAction: text.action,
	}
}

// Severity is CRITICAL for anomalies beyond twice the threshold, HIGH for other
// anomalies and LOW for nominal results regardless of score.
func Severity(r models.AnalysisResult) models.SeverityTier {
	if !r.Anomaly {
		return models.SeverityLow
	}
	if r.Score > r.Threshold*gaugeSpan {
		return models.SeverityCritical
	}
	return models.SeverityHigh
}

// GaugePercent maps score onto 0..100 with the threshold at 50.
// A threshold <= 0 (or NaN) reads 100 for any positive score and 0 otherwise.
func GaugePercent(score, threshold float64) float64 {
	if !(threshold > 0) {
		if score > 0 {
			return 100
		}
		return 0
	}
	return clamp(score/(threshold*gaugeSpan)*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
