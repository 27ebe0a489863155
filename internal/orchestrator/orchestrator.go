// Package orchestrator owns the lifecycle of the single outstanding analysis
// request: submission, supersession, cancellation, the hard timeout and the
// classification of failures.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"NavGuard/internal/domain/models"
	drepo "NavGuard/internal/domain/repository"
	"NavGuard/pkg/logger"
	"NavGuard/pkg/metrics"

	"github.com/jonboulle/clockwork"
)

// RequestTimeout bounds every submission, measured from Submit.
const RequestTimeout = 15 * time.Second

var (
	ErrSuperseded = errors.New("superseded by a newer submission")
	ErrCancelled  = errors.New("cancelled")
	ErrClosed     = errors.New("orchestrator closed")
	ErrTimeout    = errors.New("no response within request timeout")
)

// Outcome is delivered exactly once per submission.
// State is the terminal state for succeeded and failed requests, and the
// resulting idle state when the request was cancelled.
type Outcome struct {
	State models.RequestState
	Err   *models.AnalysisError
}

// Cancelled reports whether the submission was superseded or cancelled.
func (o Outcome) Cancelled() bool {
	return o.Err != nil && o.Err.Kind == models.KindCancelled
}

// Listener observes state transitions. It runs under the orchestrator lock
// and must neither block nor call back into the orchestrator.
type Listener func(models.RequestState)

type Option func(*Orchestrator)

// WithClock replaces the wall clock used for start times and the timer.
func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(m drepo.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

type inflight struct {
	gen     uint64
	started time.Time
	cancel  context.CancelFunc
	timer   clockwork.Timer
	done    chan Outcome
}

// Orchestrator serializes submissions to a Predictor. At most one request is
// in flight; a newer submission always wins.
type Orchestrator struct {
	predictor drepo.Predictor
	clock     clockwork.Clock
	log       *logger.Logger
	metrics   drepo.Metrics
	timeout   time.Duration

	mu        sync.Mutex
	state     models.RequestState
	gen       uint64
	cur       *inflight
	listeners []Listener
	closed    bool
	wg        sync.WaitGroup
}

func New(p drepo.Predictor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		predictor: p,
		clock:     clockwork.NewRealClock(),
		log:       logger.Nop(),
		metrics:   metrics.Nop{},
		timeout:   RequestTimeout,
		state:     models.RequestState{Phase: models.PhaseIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With(logger.String("component", "orchestrator"))
	return o
}

// Subscribe registers l for every subsequent transition.
func (o *Orchestrator) Subscribe(l Listener) {
	o.mu.Lock()
	o.listeners = append(o.listeners, l)
	o.mu.Unlock()
}

// State returns a snapshot of the current request state.
func (o *Orchestrator) State() models.RequestState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit starts a new request, superseding any request still pending. The
// returned channel receives exactly one Outcome.
func (o *Orchestrator) Submit(payload models.TelemetryPayload) <-chan Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		done := make(chan Outcome, 1)
		done <- Outcome{State: o.state, Err: &models.AnalysisError{Kind: models.KindCancelled, Err: ErrClosed}}
		return done
	}

	if o.cur != nil {
		o.abortLocked(ErrSuperseded)
	}

	o.gen++
	ctx, cancel := context.WithCancel(context.Background())
	inf := &inflight{
		gen:     o.gen,
		started: o.clock.Now(),
		cancel:  cancel,
		done:    make(chan Outcome, 1),
	}
	o.cur = inf
	gen := inf.gen
	inf.timer = o.clock.AfterFunc(o.timeout, func() { o.expire(gen) })

	o.setLocked(models.RequestState{
		Phase:      models.PhasePending,
		Generation: gen,
		StartedAt:  inf.started,
	})
	o.metrics.RecordSubmission()
	o.log.Info("analysis submitted", logger.Uint64("generation", gen))

	o.wg.Add(1)
	go o.run(ctx, inf, payload)

	return inf.done
}

// CancelInFlight aborts the pending request and returns to idle. It reports
// false when nothing was pending.
func (o *Orchestrator) CancelInFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cur == nil {
		return false
	}
	o.abortLocked(ErrCancelled)
	return true
}

// Close cancels any pending request and waits for its transport call to
// return. Later submissions are answered with a cancelled outcome.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		if o.cur != nil {
			o.abortLocked(ErrClosed)
		}
	}
	o.mu.Unlock()

	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, inf *inflight, payload models.TelemetryPayload) {
	defer o.wg.Done()

	res, err := o.predictor.Predict(ctx, payload)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cur != inf {
		o.discardLocked(inf.gen, "late_response")
		return
	}

	if err != nil {
		ae := classify(err)
		o.settleLocked(inf, models.RequestState{
			Phase:      models.PhaseFailed,
			Generation: inf.gen,
			StartedAt:  inf.started,
			SettledAt:  o.clock.Now(),
			Failure:    ae,
		}, ae)
		return
	}

	o.settleLocked(inf, models.RequestState{
		Phase:      models.PhaseSucceeded,
		Generation: inf.gen,
		StartedAt:  inf.started,
		SettledAt:  o.clock.Now(),
		Result:     &res,
	}, nil)
}

func (o *Orchestrator) expire(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	inf := o.cur
	if inf == nil || inf.gen != gen {
		o.discardLocked(gen, "late_timer")
		return
	}

	ae := &models.AnalysisError{Kind: models.KindTimeout, Err: ErrTimeout}
	o.settleLocked(inf, models.RequestState{
		Phase:      models.PhaseFailed,
		Generation: inf.gen,
		StartedAt:  inf.started,
		SettledAt:  o.clock.Now(),
		Failure:    ae,
	}, ae)
}

// settleLocked applies a terminal transition for the current request.
func (o *Orchestrator) settleLocked(inf *inflight, st models.RequestState, ae *models.AnalysisError) {
	o.releaseLocked(inf)
	o.setLocked(st)

	kind := "success"
	fields := []logger.Field{
		logger.Uint64("generation", inf.gen),
		logger.String("phase", string(st.Phase)),
		logger.Duration("elapsed_ms", st.SettledAt.Sub(inf.started)),
	}
	if ae != nil {
		kind = string(ae.Kind)
		fields = append(fields, logger.String("kind", kind), logger.Error(ae))
	}
	o.metrics.RecordOutcome(kind)
	o.metrics.RecordLatency("analysis", st.SettledAt.Sub(inf.started))
	o.log.Info("analysis settled", fields...)

	inf.done <- Outcome{State: st, Err: ae}
}

// abortLocked cancels the current request and moves to idle.
func (o *Orchestrator) abortLocked(cause error) {
	inf := o.cur
	o.releaseLocked(inf)

	st := models.RequestState{Phase: models.PhaseIdle, Generation: inf.gen}
	o.setLocked(st)

	o.metrics.RecordOutcome(string(models.KindCancelled))
	o.log.Info("analysis cancelled",
		logger.Uint64("generation", inf.gen),
		logger.String("cause", cause.Error()),
	)

	inf.done <- Outcome{State: st, Err: &models.AnalysisError{Kind: models.KindCancelled, Err: cause}}
}

// releaseLocked disarms the timer and cancels the transport context.
func (o *Orchestrator) releaseLocked(inf *inflight) {
	inf.timer.Stop()
	inf.cancel()
	o.cur = nil
}

func (o *Orchestrator) discardLocked(gen uint64, reason string) {
	o.metrics.RecordStale(reason)
	o.log.Debug("stale settlement discarded",
		logger.Uint64("generation", gen),
		logger.Uint64("current", o.gen),
		logger.String("reason", reason),
	)
}

func (o *Orchestrator) setLocked(st models.RequestState) {
	o.state = st
	for _, l := range o.listeners {
		l(st)
	}
}

// classify maps a transport error onto the failure taxonomy.
func classify(err error) *models.AnalysisError {
	var se *models.ServiceError
	switch {
	case errors.As(err, &se):
		return &models.AnalysisError{Kind: models.KindService, Detail: se.Detail, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &models.AnalysisError{Kind: models.KindTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &models.AnalysisError{Kind: models.KindCancelled, Err: err}
	default:
		return &models.AnalysisError{Kind: models.KindTransport, Err: err}
	}
}
