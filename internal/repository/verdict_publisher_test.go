package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"NavGuard/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	key    []byte
	value  interface{}
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, key []byte, value interface{}) error {
	f.key, f.value = key, value
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaVerdictPublisherKeysByGeneration(t *testing.T) {
	fp := &fakeProducer{}
	p := &KafkaVerdictPublisher{producer: fp}

	ev := &models.VerdictEvent{
		Generation: 42,
		Phase:      models.PhaseSucceeded,
		SettledAt:  time.Date(2024, 2, 27, 3, 42, 19, 0, time.UTC),
		Result:     &models.AnalysisResult{Anomaly: true, Score: 0.12, Threshold: 0.05, Status: "success"},
		Verdict:    &models.VerdictView{Label: models.LabelAnomaly, SeverityTier: models.SeverityCritical, GaugePercent: 100},
	}
	require.NoError(t, p.Publish(context.Background(), ev))

	assert.Equal(t, "42", string(fp.key))
	b, err := json.Marshal(fp.value)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"severity_tier":"CRITICAL"`)
	assert.Contains(t, string(b), `"generation":42`)

	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
}

func TestNoopVerdictPublisher(t *testing.T) {
	p := NewNoopVerdictPublisher()
	assert.NoError(t, p.Publish(context.Background(), &models.VerdictEvent{}))
	assert.NoError(t, p.Close())
}
