package models

const (
	ModeWait  = "wait"
	ModeAsync = "async"
)

// AnalysisRequest holds the query parameters of POST /api/analysis.
type AnalysisRequest struct {
	Mode string `query:"mode" default:"wait" validate:"oneof=wait async"`
}
