//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	domrepo "KOLStats/internal/domain/repository"
	"KOLStats/pkg/config"
	"KOLStats/pkg/metrics"
	"KOLStats/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideRegisterer,
	ProvideRecorder,
	wire.Bind(new(domrepo.Metrics), new(*metrics.Recorder)),
	ProvideKafkaMetrics,
	ProvideRedisClient,
	ProvideCache,
	ProvideClickHouseClient,
	ProvideKafkaProducer,
)

var domainSet = wire.NewSet(
	ProvideStatsSource,
	ProvideSnapshotStore,
	ProvideResolver,
	ProvideChannelMetricsUseCase,
)

var transportSet = wire.NewSet(
	ProvideHub,
	ProvideQueue,
	ProvideKafkaConsumer,
	ProvideHTTPServer,
	ProvideApp,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(infraSet, domainSet, transportSet)
	return &server.App{}, nil
}
