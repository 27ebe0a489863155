package models

import "time"

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Lifecycle is the three-state view the UI renders.
type Lifecycle string

const (
	LifecycleIdle    Lifecycle = "idle"
	LifecycleLoading Lifecycle = "loading"
	LifecycleSettled Lifecycle = "settled"
)

// RequestState is an immutable snapshot of the orchestrator's state cell.
// Result is set only in PhaseSucceeded, Failure only in PhaseFailed.
type RequestState struct {
	Phase      Phase           `json:"phase"`
	Generation uint64          `json:"generation"`
	StartedAt  time.Time       `json:"started_at,omitempty"`
	SettledAt  time.Time       `json:"settled_at,omitempty"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Failure    *AnalysisError  `json:"failure,omitempty"`
}

func (s RequestState) Lifecycle() Lifecycle {
	switch s.Phase {
	case PhasePending:
		return LifecycleLoading
	case PhaseSucceeded, PhaseFailed:
		return LifecycleSettled
	default:
		return LifecycleIdle
	}
}

func (s RequestState) Settled() bool {
	return s.Lifecycle() == LifecycleSettled
}
