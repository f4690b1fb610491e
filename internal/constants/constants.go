package constants

import "time"

const (
	// AggregatorBatchSize bounds how many events one derivation pass folds.
	AggregatorBatchSize = 100
	// AggregatorPollInterval is the idle delay once the consumer caught up.
	AggregatorPollInterval = 2 * time.Second

	// DefaultLoadLimit caps Load calls that pass no explicit limit.
	DefaultLoadLimit = 1000
)

const (
	UpsertRetryAttempts = 5
	UpsertRetryBase     = 250 * time.Millisecond
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	SyncInterval       = 5 * time.Minute
	SyncPageSize       = 100
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultRankingPageSize = 50
	MaxRankingPageSize     = 200

	DefaultMatchPageSize = 50
	MaxMatchPageSize     = 200

	DefaultOngoingPageSize = 50
)
