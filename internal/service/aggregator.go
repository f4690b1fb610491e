package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"wc3stats/internal/constants"
	"wc3stats/internal/domain"
	"wc3stats/internal/repository"
	"wc3stats/internal/stats"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// StatsConsumer is the checkpoint name of the stat-derivation consumer.
const StatsConsumer = "player-stats"

// AggregatorService is the single consumer of the event log. It pulls events
// past its durable cursor, folds them into aggregate deltas, and applies
// each batch together with the cursor advance in one transaction. Because
// the cursor commits with the writes, every event identifier is counted at
// most once no matter how often a batch is redelivered.
type AggregatorService struct {
	eventRepo      *repository.EventRepository
	checkpointRepo *repository.CheckpointRepository
	statsRepo      *repository.StatsRepository
	logger         zerolog.Logger

	batchSize    int
	pollInterval time.Duration
}

func NewAggregatorService(
	eventRepo *repository.EventRepository,
	checkpointRepo *repository.CheckpointRepository,
	statsRepo *repository.StatsRepository,
	logger zerolog.Logger,
) *AggregatorService {
	return &AggregatorService{
		eventRepo:      eventRepo,
		checkpointRepo: checkpointRepo,
		statsRepo:      statsRepo,
		logger:         logger,
		batchSize:      constants.AggregatorBatchSize,
		pollInterval:   constants.AggregatorPollInterval,
	}
}

// Run consumes the event log until the context is canceled. Cancellation is
// honored between batches only; an in-flight batch either commits whole or
// rolls back whole. Returns a non-nil error only when the store stayed
// unavailable past the retry budget, in which case the consumer halts
// without advancing its cursor rather than skipping events.
func (s *AggregatorService) Run(ctx context.Context) error {
	cursor, err := s.checkpointRepo.Get(ctx, StatsConsumer)
	if err != nil {
		return fmt.Errorf("failed to load aggregator checkpoint: %w", err)
	}
	s.logger.Info().Int64("cursor", cursor).Msg("aggregator starting")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Int64("cursor", cursor).Msg("aggregator stopped")
			return nil
		default:
		}

		processed, next, err := s.ProcessOnce(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error().Err(err).Int64("cursor", cursor).
				Msg("aggregation halted, cursor not advanced")
			return err
		}
		cursor = next

		if processed == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.pollInterval):
			}
		}
	}
}

// ProcessOnce folds at most one batch of events past the cursor and returns
// how many events were processed along with the new cursor. Exposed for the
// run loop and for tests that drive the consumer step by step.
func (s *AggregatorService) ProcessOnce(ctx context.Context, cursor int64) (int, int64, error) {
	events, err := s.eventRepo.LoadAfter(ctx, cursor, s.batchSize)
	if err != nil {
		return 0, cursor, fmt.Errorf("failed to load events: %w", err)
	}
	if len(events) == 0 {
		return 0, cursor, nil
	}

	var merged stats.DeltaBatch
	for _, ev := range events {
		batch, diags := stats.Derive(ev)
		for _, d := range diags {
			s.logger.Warn().Int64("event_id", d.EventID).Str("battle_tag", d.BattleTag).
				Str("reason", d.Reason).Msg("skipping malformed player entry")
		}
		merged.Merge(batch)
	}
	lastID := events[len(events)-1].ID

	if err := s.applyWithRetry(ctx, merged, lastID); err != nil {
		return 0, cursor, err
	}

	s.logger.Debug().Int("events", len(events)).Int64("cursor", lastID).Msg("batch aggregated")
	return len(events), lastID, nil
}

// applyWithRetry retries transient storage faults with exponential backoff.
// The apply itself runs detached from the run loop's cancellation so a
// shutdown never interrupts a committing batch.
func (s *AggregatorService) applyWithRetry(ctx context.Context, batch stats.DeltaBatch, lastID int64) error {
	applyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.RequestTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(constants.UpsertRetryAttempts, retry.NewExponential(constants.UpsertRetryBase))
	err := retry.Do(applyCtx, backoff, func(ctx context.Context) error {
		if err := s.statsRepo.ApplyBatch(ctx, StatsConsumer, batch, lastID); err != nil {
			if errors.Is(err, domain.ErrStorageUnavailable) {
				s.logger.Warn().Err(err).Int64("last_id", lastID).Msg("aggregate upsert failed, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply aggregate batch up to %d: %w", lastID, err)
	}
	return nil
}
