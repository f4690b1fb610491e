package service

import (
	"context"
	"time"
	"wc3stats/internal/api"
	"wc3stats/internal/config"
	"wc3stats/internal/constants"
	"wc3stats/internal/domain"
	"wc3stats/internal/repository"

	"github.com/rs/zerolog"
)

// SyncConsumer is the checkpoint name tracking how far backfill has read
// into the matchmaking service's finished-match listing.
const SyncConsumer = "match-sync"

// SyncService backfills finished matches from the matchmaking service so
// matches missed by live telemetry still get counted. Backfilled events are
// inserted with WasFromSync set; counting them is safe because aggregation
// idempotency is keyed off event identifiers, not arrival paths.
type SyncService struct {
	client         *api.MatchmakingClient
	ingest         *IngestService
	checkpointRepo *repository.CheckpointRepository
	logger         zerolog.Logger
	enabled        bool
	interval       time.Duration
}

func NewSyncService(client *api.MatchmakingClient, ingest *IngestService, checkpointRepo *repository.CheckpointRepository, cfg *config.Config, logger zerolog.Logger) *SyncService {
	return &SyncService{
		client:         client,
		ingest:         ingest,
		checkpointRepo: checkpointRepo,
		logger:         logger,
		enabled:        cfg.SyncEnabled,
		interval:       cfg.SyncInterval,
	}
}

// Run polls the matchmaking service until the context is canceled. No-op
// when sync is not configured.
func (s *SyncService) Run(ctx context.Context) {
	if !s.enabled {
		s.logger.Debug().Msg("match sync disabled")
		return
	}

	s.logger.Info().Dur("interval", s.interval).Msg("match sync starting")
	for {
		if err := s.syncOnce(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("match sync pass failed")
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("match sync stopped")
			return
		case <-time.After(s.interval):
		}
	}
}

// syncOnce pages forward from the durable sync offset, so a match listed by
// the matchmaking service is ingested exactly once across passes.
func (s *SyncService) syncOnce(ctx context.Context) error {
	saved, err := s.checkpointRepo.Get(ctx, SyncConsumer)
	if err != nil {
		return err
	}
	offset := int(saved)

	for {
		resp, err := s.fetchPage(ctx, offset)
		if err != nil {
			return err
		}
		if len(resp.Matches) == 0 {
			return nil
		}

		events := make([]domain.MatchEvent, 0, len(resp.Matches))
		for _, m := range resp.Matches {
			dto := api.MatchEventDTO{Kind: "finished", Match: &m, WasFromSync: true}
			events = append(events, dto.ToDomain())
		}

		lastID, err := s.ingest.Insert(ctx, events)
		if err != nil {
			return err
		}

		offset += len(resp.Matches)
		if err := s.checkpointRepo.Save(ctx, SyncConsumer, int64(offset)); err != nil {
			return err
		}
		s.logger.Info().Int("count", len(events)).Int64("last_id", lastID).Int("offset", offset).
			Msg("backfilled finished matches")

		if len(resp.Matches) < constants.SyncPageSize {
			return nil
		}
	}
}

// fetchPage scopes the API deadline to a single request; a long catch-up over
// many pages must not exhaust one shared timeout.
func (s *SyncService) fetchPage(ctx context.Context, offset int) (*api.FinishedMatchesResponse, error) {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()
	return s.client.GetFinishedMatches(apiCtx, offset, constants.SyncPageSize)
}
