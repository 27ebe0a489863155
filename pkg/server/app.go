package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"NavGuard/internal/domain/repository"
	"NavGuard/internal/handler/stream"
	mid "NavGuard/internal/middleware"
	"NavGuard/internal/orchestrator"
	"NavGuard/pkg/config"
	xhttp "NavGuard/pkg/http"
	applogger "NavGuard/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	orch       *orchestrator.Orchestrator
	pipeline   *mid.EventPipeline
	hub        *stream.Hub
	publisher  repository.VerdictPublisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	orch *orchestrator.Orchestrator,
	pipeline *mid.EventPipeline,
	hub *stream.Hub,
	publisher repository.VerdictPublisher,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		orch:       orch,
		pipeline:   pipeline,
		hub:        hub,
		publisher:  publisher,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return a.RunUntil(sigCh)
}

// RunUntil starts the application and shuts it down once stop fires.
func (a *App) RunUntil(stop <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.pipeline.Start(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("navguard started",
		applogger.String("predictor", a.cfg.Predictor.BaseURL),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	<-stop
	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	// Cancel any in-flight analysis so waiting handlers answer at once
	a.orch.Close()

	// Drop stream clients
	a.hub.Close()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// Flush buffered events, then release the producer
	a.pipeline.Stop()
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("verdict publisher close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
