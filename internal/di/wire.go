//go:build wireinject
// +build wireinject

package di

import (
	"MarketCast/pkg/config"
	"MarketCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideStoreClient,
		ProvideCache,
		ProvideLocker,
		ProvidePublisher,

		// Repositories
		ProvidePredictionStore,

		// Market data behind the admission queue
		ProvideAdmissionQueue,
		ProvideStockData,
		ProvideCryptoData,
		ProvidePredictor,

		// Use cases
		ProvideOrchestrator,
		ProvideBatchGuard,

		// Transport
		ProvideTriggerLimiter,
		ProvideTriggerConfig,
		ProvideHandler,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializePipeline wires the prediction pipeline without the HTTP server
// or scheduler.
func InitializePipeline(cfg *config.Config) (*Pipeline, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideStoreClient,
		ProvideCache,
		ProvideLocker,
		ProvidePublisher,
		ProvidePredictionStore,
		ProvideAdmissionQueue,
		ProvideStockData,
		ProvideCryptoData,
		ProvidePredictor,
		ProvideOrchestrator,
		ProvideBatchGuard,
		ProvidePipeline,
	)
	return &Pipeline{}, nil
}
