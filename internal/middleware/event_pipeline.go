package middleware

import (
	"context"
	"sync"
	"time"

	"NavGuard/internal/domain/models"
	drepo "NavGuard/internal/domain/repository"
	"NavGuard/internal/usecase"
	"NavGuard/pkg/logger"
)

// Broadcaster receives every snapshot in transition order.
type Broadcaster interface {
	Broadcast(s usecase.Snapshot)
}

// EventPipeline sits between the orchestrator and slow consumers. Enqueue
// never blocks; one goroutine drains the buffer in order, broadcasting every
// snapshot and publishing settled ones.
type EventPipeline struct {
	hub         Broadcaster
	pub         drepo.VerdictPublisher
	metrics     drepo.Metrics
	log         *logger.Logger
	bufSize     int
	maxAttempts int
	backoff     time.Duration
	maxBackoff  time.Duration

	bufCh   chan usecase.Snapshot
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	mu      sync.Mutex
}

type PipelineOption func(*EventPipeline)

// WithBufferSize sets the capacity of the snapshot buffer.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithPublishRetry sets publish attempts and the initial backoff.
func WithPublishRetry(attempts int, backoff time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if attempts > 0 {
			p.maxAttempts = attempts
		}
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *EventPipeline) { p.log = l }
}

// NewEventPipeline creates a pipeline. pub may be nil.
func NewEventPipeline(hub Broadcaster, pub drepo.VerdictPublisher, metrics drepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		hub:         hub,
		pub:         pub,
		metrics:     metrics,
		log:         logger.Nop(),
		bufSize:     256,
		maxAttempts: 3,
		backoff:     50 * time.Millisecond,
		maxBackoff:  2 * time.Second,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan usecase.Snapshot, p.bufSize)
	return p
}

// Enqueue hands s to the drain goroutine, dropping it when the buffer is full.
func (p *EventPipeline) Enqueue(s usecase.Snapshot) {
	select {
	case p.bufCh <- s:
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		p.log.Warn("snapshot dropped", logger.Uint64("generation", s.State.Generation))
	}
}

// Start launches the drain goroutine. It is a no-op once started or stopped.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		for {
			select {
			case <-p.stopCh:
				p.drain(ctx)
				return
			case <-ctx.Done():
				return
			case s := <-p.bufCh:
				p.handle(ctx, s)
			}
		}
	}()
}

// Stop flushes what is buffered and waits for the drain goroutine. A stopped
// pipeline cannot be restarted.
func (p *EventPipeline) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh
}

func (p *EventPipeline) drain(ctx context.Context) {
	for {
		select {
		case s := <-p.bufCh:
			p.handle(ctx, s)
		default:
			return
		}
	}
}

func (p *EventPipeline) handle(ctx context.Context, s usecase.Snapshot) {
	if p.hub != nil {
		p.hub.Broadcast(s)
	}
	if p.pub == nil {
		return
	}
	ev := s.Event()
	if ev == nil || ev.ErrorKind == models.KindCancelled {
		return
	}
	p.publish(ctx, ev)
}

func (p *EventPipeline) publish(ctx context.Context, ev *models.VerdictEvent) {
	start := time.Now()
	backoff := p.backoff
	for attempt := 1; ; attempt++ {
		err := p.pub.Publish(ctx, ev)
		if err == nil {
			p.metrics.RecordLatency("pipeline_publish", time.Since(start))
			return
		}
		p.metrics.RecordError("pipeline_publish")
		if attempt >= p.maxAttempts {
			p.metrics.RecordError("pipeline_publish_drop")
			p.log.Error("verdict event dropped",
				logger.Uint64("generation", ev.Generation),
				logger.Int("attempts", attempt),
				logger.Error(err),
			)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		// exponential backoff with cap
		backoff *= 2
		if backoff > p.maxBackoff {
			backoff = p.maxBackoff
		}
	}
}
