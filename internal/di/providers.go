package di

import (
	"fmt"

	"NavGuard/internal/domain/repository"
	"NavGuard/internal/handler/api"
	"NavGuard/internal/handler/stream"
	mid "NavGuard/internal/middleware"
	"NavGuard/internal/orchestrator"
	internalrepo "NavGuard/internal/repository"
	"NavGuard/internal/service/cache"
	svcmetrics "NavGuard/internal/service/metrics"
	"NavGuard/internal/service/predictor"
	"NavGuard/internal/service/ratelimit"
	"NavGuard/internal/usecase"
	"NavGuard/pkg/config"
	xhttp "NavGuard/pkg/http"
	pkgkafka "NavGuard/pkg/kafka"
	"NavGuard/pkg/logger"
	"NavGuard/pkg/metrics"
	"NavGuard/pkg/server"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry shared by every collector.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvidePredictor creates the prediction service client.
func ProvidePredictor(cfg *config.Config, reg *prometheus.Registry) *predictor.Client {
	return predictor.New(cfg.Predictor.BaseURL, cfg.Predictor.HealthTimeout,
		predictor.WithUpstreamMetrics(svcmetrics.NewUpstream(reg)),
	)
}

// ProvideOrchestrator creates the request orchestrator.
func ProvideOrchestrator(p *predictor.Client, l *logger.Logger, m repository.Metrics) *orchestrator.Orchestrator {
	return orchestrator.New(p,
		orchestrator.WithLogger(l),
		orchestrator.WithMetrics(m),
	)
}

// ProvideAnalysis creates the analysis use case.
func ProvideAnalysis(
	cfg *config.Config,
	orch *orchestrator.Orchestrator,
	p *predictor.Client,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Analysis {
	health := cache.NewCachedHealth(p, cache.NewTTLCache(nil), cfg.Predictor.HealthCacheTTL)
	return usecase.NewAnalysis(orch, health, m, l)
}

// ProvideHub creates the WebSocket snapshot hub.
func ProvideHub(cfg *config.Config, uc *usecase.Analysis, l *logger.Logger) *stream.Hub {
	var origins []string
	if cfg.Server.CORS {
		origins = cfg.Server.CORSOrigins
	}
	return stream.NewHub(stream.Config{
		PingInterval: cfg.Stream.PingInterval,
		WriteWait:    cfg.Stream.WriteWait,
		ClientBuffer: cfg.Stream.ClientBuffer,
		AllowOrigins: origins,
	}, uc.Snapshot(), l)
}

// ProvideVerdictPublisher creates the Kafka publisher, or a no-op one when
// Kafka is disabled.
func ProvideVerdictPublisher(cfg *config.Config, reg *prometheus.Registry) (repository.VerdictPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NewNoopVerdictPublisher(), nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaVerdictPublisher(producer), nil
}

// ProvideEventPipeline creates the snapshot pipeline and subscribes it to
// every state transition.
func ProvideEventPipeline(
	cfg *config.Config,
	uc *usecase.Analysis,
	hub *stream.Hub,
	pub repository.VerdictPublisher,
	m repository.Metrics,
	l *logger.Logger,
) *mid.EventPipeline {
	pipe := mid.NewEventPipeline(hub, pub, m,
		mid.WithBufferSize(cfg.Stream.EventBuffer),
		mid.WithPipelineLogger(l.With(logger.String("component", "pipeline"))),
	)
	uc.OnSnapshot(pipe.Enqueue)
	return pipe
}

// ProvideHTTPHandler creates the dashboard API handler.
func ProvideHTTPHandler(cfg *config.Config, l *logger.Logger, uc *usecase.Analysis, hub *stream.Hub) xhttp.Handler {
	var throttle []echo.MiddlewareFunc
	if cfg.RateLimit.Enabled {
		throttle = append(throttle, ratelimit.Middleware(ratelimit.New(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond, nil)))
	}
	return api.NewAnalysisEchoHandler(l, uc, hub.Handle, throttle...)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *logger.Logger, reg *prometheus.Registry) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(reg, metricsPath),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	orch *orchestrator.Orchestrator,
	pipe *mid.EventPipeline,
	hub *stream.Hub,
	pub repository.VerdictPublisher,
) *server.App {
	return server.New(cfg, l, httpServer, orch, pipe, hub, pub)
}
