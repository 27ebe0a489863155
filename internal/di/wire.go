//go:build wireinject
// +build wireinject

package di

import (
	"NavGuard/pkg/config"
	"NavGuard/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Outbound
		ProvidePredictor,
		ProvideVerdictPublisher,

		// Core
		ProvideOrchestrator,
		ProvideAnalysis,

		// Presentation
		ProvideHub,
		ProvideEventPipeline,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
