package repository

import (
	"context"
	"strconv"

	"NavGuard/internal/domain/models"
	"NavGuard/internal/domain/repository"
	pkgkafka "NavGuard/pkg/kafka"
)

type producer interface {
	Publish(ctx context.Context, key []byte, value interface{}) error
	Close() error
}

// KafkaVerdictPublisher implements VerdictPublisher for Kafka. Events are
// keyed by generation.
type KafkaVerdictPublisher struct {
	producer producer
}

// NewKafkaVerdictPublisher creates Kafka publisher.
func NewKafkaVerdictPublisher(p *pkgkafka.Producer) repository.VerdictPublisher {
	if p == nil {
		return NoopVerdictPublisher{}
	}
	return &KafkaVerdictPublisher{producer: p}
}

func (p *KafkaVerdictPublisher) Publish(ctx context.Context, ev *models.VerdictEvent) error {
	key := strconv.FormatUint(ev.Generation, 10)
	return p.producer.Publish(ctx, []byte(key), ev)
}

func (p *KafkaVerdictPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopVerdictPublisher discards events; used when Kafka is disabled.
type NoopVerdictPublisher struct{}

func NewNoopVerdictPublisher() repository.VerdictPublisher {
	return NoopVerdictPublisher{}
}

func (NoopVerdictPublisher) Publish(context.Context, *models.VerdictEvent) error { return nil }

func (NoopVerdictPublisher) Close() error { return nil }
