package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"NavGuard/internal/domain/models"
	drepo "NavGuard/internal/domain/repository"
	"NavGuard/internal/normalizer"
	"NavGuard/internal/orchestrator"
	"NavGuard/internal/verdict"
	"NavGuard/pkg/logger"
)

// Snapshot is the read-only view every presentation surface renders.
// Verdict is derived once per state and shared by all consumers.
type Snapshot struct {
	State      models.RequestState   `json:"state"`
	Lifecycle  models.Lifecycle      `json:"lifecycle"`
	Verdict    *models.VerdictView   `json:"verdict,omitempty"`
	Message    string                `json:"message,omitempty"`
	Advisories []normalizer.Advisory `json:"advisories,omitempty"`
}

// Analysis glues input normalization, request orchestration and verdict
// derivation.
type Analysis struct {
	orch    *orchestrator.Orchestrator
	health  drepo.HealthChecker
	metrics drepo.Metrics
	log     *logger.Logger

	submitMu   sync.Mutex
	advisories atomic.Pointer[[]normalizer.Advisory]
}

// NewAnalysis creates the analysis use case.
func NewAnalysis(
	orch *orchestrator.Orchestrator,
	health drepo.HealthChecker,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Analysis {
	a := &Analysis{
		orch:    orch,
		health:  health,
		metrics: metrics,
		log:     log.With(logger.String("component", "analysis")),
	}
	orch.Subscribe(func(st models.RequestState) {
		if st.Phase == models.PhaseSucceeded && st.Result != nil {
			metrics.RecordSeverity(string(verdict.Severity(*st.Result)))
		}
	})
	return a
}

// Analyze validates raw and submits it. On models.ValidationErrors nothing is
// submitted and the current request, if any, is left untouched.
func (a *Analysis) Analyze(raw models.TelemetryInput) (<-chan orchestrator.Outcome, error) {
	payload, err := normalizer.Normalize(raw)
	if err != nil {
		a.metrics.RecordError(string(models.KindValidation))
		a.log.Debug("telemetry rejected", logger.Error(err))
		return nil, err
	}

	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	adv := normalizer.Advisories(payload)
	a.advisories.Store(&adv)
	return a.orch.Submit(payload), nil
}

// Cancel aborts the pending request. It reports whether one was pending.
func (a *Analysis) Cancel() bool {
	return a.orch.CancelInFlight()
}

// Snapshot renders the current state.
func (a *Analysis) Snapshot() Snapshot {
	return a.SnapshotOf(a.orch.State())
}

// SnapshotOf renders st. It holds no locks and is safe inside listeners.
func (a *Analysis) SnapshotOf(st models.RequestState) Snapshot {
	s := Snapshot{
		State:     st,
		Lifecycle: st.Lifecycle(),
	}
	switch st.Phase {
	case models.PhaseSucceeded:
		if st.Result != nil {
			v := verdict.Derive(*st.Result)
			s.Verdict = &v
		}
	case models.PhaseFailed:
		if st.Failure != nil {
			s.Message = st.Failure.Message()
		}
	}
	if st.Phase != models.PhaseIdle {
		if adv := a.advisories.Load(); adv != nil && len(*adv) > 0 {
			s.Advisories = *adv
		}
	}
	return s
}

// OnSnapshot registers fn for a snapshot of every state transition.
// fn runs under the orchestrator lock and must not block.
func (a *Analysis) OnSnapshot(fn func(Snapshot)) {
	a.orch.Subscribe(func(st models.RequestState) {
		fn(a.SnapshotOf(st))
	})
}

// Health probes the prediction service.
func (a *Analysis) Health(ctx context.Context) (models.ServiceHealth, error) {
	return a.health.Health(ctx)
}

// Event converts a settled snapshot into a verdict event. It returns nil for
// idle and pending snapshots.
func (s Snapshot) Event() *models.VerdictEvent {
	if !s.State.Settled() {
		return nil
	}
	ev := &models.VerdictEvent{
		Generation: s.State.Generation,
		Phase:      s.State.Phase,
		StartedAt:  s.State.StartedAt,
		SettledAt:  s.State.SettledAt,
		Result:     s.State.Result,
		Verdict:    s.Verdict,
		Message:    s.Message,
	}
	if s.State.Failure != nil {
		ev.ErrorKind = s.State.Failure.Kind
	}
	return ev
}
