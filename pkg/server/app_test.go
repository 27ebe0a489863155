package server

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"NavGuard/internal/domain/models"
	"NavGuard/internal/handler/stream"
	mid "NavGuard/internal/middleware"
	"NavGuard/internal/orchestrator"
	internalrepo "NavGuard/internal/repository"
	"NavGuard/internal/usecase"
	"NavGuard/pkg/config"
	xhttp "NavGuard/pkg/http"
	applogger "NavGuard/pkg/logger"
	"NavGuard/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingPredictor struct{}

func (blockingPredictor) Predict(ctx context.Context, _ models.TelemetryPayload) (models.AnalysisResult, error) {
	<-ctx.Done()
	return models.AnalysisResult{}, ctx.Err()
}

type okHealth struct{}

func (okHealth) Health(context.Context) (models.ServiceHealth, error) {
	return models.ServiceHealth{Status: "active"}, nil
}

func TestRunUntilShutsDownCleanly(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	log := applogger.Nop()

	orch := orchestrator.New(blockingPredictor{})
	uc := usecase.NewAnalysis(orch, okHealth{}, metrics.Nop{}, log)
	hub := stream.NewHub(stream.Config{}, uc.Snapshot(), log)
	pipe := mid.NewEventPipeline(hub, internalrepo.NewNoopVerdictPublisher(), metrics.Nop{})
	uc.OnSnapshot(pipe.Enqueue)
	srv := xhttp.NewServer(nil, log, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))

	app := New(cfg, log, srv, orch, pipe, hub, internalrepo.NewNoopVerdictPublisher())

	stop := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() { done <- app.RunUntil(stop) }()

	ch, err := uc.Analyze(models.TelemetryInput{
		Timestamp: "27/02/2024 03:42:19", MMSI: "24700", Latitude: "37.802",
		Longitude: "-122.405", SOG: "12.5", COG: "245.0", Heading: "242.0",
	})
	require.NoError(t, err)

	stop <- syscall.SIGTERM
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	out := <-ch
	assert.True(t, out.Cancelled())
	assert.ErrorIs(t, out.Err, orchestrator.ErrClosed)
}
