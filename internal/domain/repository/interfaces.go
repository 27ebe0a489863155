package repository

import (
	"context"
	"time"

	"NavGuard/internal/domain/models"
)

// Predictor is the transport to the external anomaly-detection service.
type Predictor interface {
	Predict(ctx context.Context, payload models.TelemetryPayload) (models.AnalysisResult, error)
}

// HealthChecker probes the prediction service without submitting telemetry.
type HealthChecker interface {
	Health(ctx context.Context) (models.ServiceHealth, error)
}

// VerdictPublisher ships settled verdict events to downstream consumers.
type VerdictPublisher interface {
	Publish(ctx context.Context, ev *models.VerdictEvent) error
	Close() error
}

type Metrics interface {
	RecordSubmission()
	RecordOutcome(kind string)
	RecordStale(reason string)
	RecordSeverity(tier string)
	RecordLatency(op string, d time.Duration)
	RecordError(kind string)
}
