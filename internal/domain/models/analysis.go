package models

// AnalysisResult is the prediction service response.
type AnalysisResult struct {
	Anomaly   bool    `json:"anomaly"`
	Score     float64 `json:"score"`     // reconstruction error (MSE)
	Threshold float64 `json:"threshold"` // decision boundary
	Status    string  `json:"status"`
}

type SeverityTier string

const (
	SeverityLow      SeverityTier = "LOW"
	SeverityHigh     SeverityTier = "HIGH"
	SeverityCritical SeverityTier = "CRITICAL"
)

const (
	LabelAnomaly = "ANOMALY DETECTED"
	LabelNominal = "NOMINAL"
)

// VerdictView is the presentation model derived from an AnalysisResult.
// It is recomputed on demand and never stored.
type VerdictView struct {
	Label             string       `json:"label"`
	SeverityTier      SeverityTier `json:"severity_tier"`
	GaugePercent      float64      `json:"gauge_percent"`
	Narrative         string       `json:"narrative"`
	RecommendedAction string       `json:"recommended_action"`
}
