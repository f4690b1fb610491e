package fx

import (
	"wc3stats/internal/api"
	"wc3stats/internal/config"
	"wc3stats/internal/database"
	"wc3stats/internal/logger"
	"wc3stats/internal/rating"
	"wc3stats/internal/repository"
	"wc3stats/internal/server"
	"wc3stats/internal/service"

	"go.uber.org/fx"
)

func ProvideEstimator() rating.LowerBoundEstimator {
	return rating.NewConservativeEstimator()
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(ProvideEstimator),
	// repos
	fx.Provide(repository.NewEventRepository),
	fx.Provide(repository.NewCheckpointRepository),
	fx.Provide(repository.NewStatsRepository),
	fx.Provide(repository.NewOverviewRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewOngoingMatchRepository),
	// api client
	fx.Provide(api.NewMatchmakingClient),
	// svc
	fx.Provide(service.NewIngestService),
	fx.Provide(service.NewAggregatorService),
	fx.Provide(service.NewProfileService),
	fx.Provide(service.NewSyncService),
	// server
	fx.Provide(server.NewStatsServer),
)
