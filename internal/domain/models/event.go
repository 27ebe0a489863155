package models

import "time"

// ServiceHealth is the prediction service's root endpoint body.
type ServiceHealth struct {
	Status string `json:"status"`
	System string `json:"system"`
}

// VerdictEvent records one settled submission for downstream consumers.
type VerdictEvent struct {
	Generation uint64          `json:"generation"`
	Phase      Phase           `json:"phase"`
	StartedAt  time.Time       `json:"started_at"`
	SettledAt  time.Time       `json:"settled_at"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Verdict    *VerdictView    `json:"verdict,omitempty"`
	ErrorKind  ErrorKind       `json:"error_kind,omitempty"`
	Message    string          `json:"message,omitempty"`
}
