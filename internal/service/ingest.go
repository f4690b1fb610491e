package service

import (
	"context"
	"fmt"
	"wc3stats/internal/constants"
	"wc3stats/internal/domain"
	"wc3stats/internal/rating"
	"wc3stats/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// IngestService validates and appends match event batches. A batch is all
// or nothing: one malformed event rejects the whole batch before anything
// touches the store.
type IngestService struct {
	eventRepo *repository.EventRepository
	estimator rating.LowerBoundEstimator
	logger    zerolog.Logger
}

func NewIngestService(eventRepo *repository.EventRepository, estimator rating.LowerBoundEstimator, logger zerolog.Logger) *IngestService {
	return &IngestService{eventRepo: eventRepo, estimator: estimator, logger: logger}
}

// Insert appends the events in the given order and returns the identifier
// of the last appended event. An empty batch returns the store's current
// maximum identifier unchanged.
func (s *IngestService) Insert(ctx context.Context, events []domain.MatchEvent) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	for i := range events {
		if err := validateEvent(&events[i]); err != nil {
			s.logger.Warn().Err(err).Int("index", i).Msg("rejecting event batch")
			return 0, err
		}
		if err := assignMatchID(&events[i]); err != nil {
			return 0, err
		}
		s.fillRatingBounds(&events[i])
	}

	lastID, err := s.eventRepo.InsertBatch(ctx, events)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(events)).Msg("failed to insert event batch")
		return 0, fmt.Errorf("failed to insert event batch: %w", err)
	}

	if len(events) > 0 {
		s.logger.Info().Int("count", len(events)).Int64("last_id", lastID).Msg("event batch ingested")
	}
	return lastID, nil
}

func validateEvent(ev *domain.MatchEvent) error {
	switch ev.Kind {
	case domain.EventStarted:
		if ev.Unfinished == nil {
			return fmt.Errorf("%w: started event has no match", domain.ErrValidation)
		}
		if len(ev.Unfinished.Players) == 0 {
			return fmt.Errorf("%w: started event has no players", domain.ErrValidation)
		}
	case domain.EventFinished, domain.EventCanceled:
		if ev.Match == nil {
			return fmt.Errorf("%w: %s event has no match", domain.ErrValidation, ev.Kind)
		}
		if len(ev.Match.Players) == 0 {
			return fmt.Errorf("%w: %s event has no players", domain.ErrValidation, ev.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown event kind %d", domain.ErrValidation, ev.Kind)
	}
	return nil
}

// fillRatingBounds backfills missing conservative rating bounds on finished
// events. Producer-supplied bounds are left untouched.
func (s *IngestService) fillRatingBounds(ev *domain.MatchEvent) {
	if ev.Match == nil {
		return
	}
	for i := range ev.Match.Players {
		p := &ev.Match.Players[i]
		p.MmrBefore = rating.FillLowerBound(p.MmrBefore, s.estimator)
		p.MmrAfter = rating.FillLowerBound(p.MmrAfter, s.estimator)
	}
}

// assignMatchID fills a missing match identifier so liveness tracking stays
// keyed even when the producer omitted one.
func assignMatchID(ev *domain.MatchEvent) error {
	var id *string
	switch {
	case ev.Match != nil && ev.Match.MatchID == "":
		id = &ev.Match.MatchID
	case ev.Unfinished != nil && ev.Unfinished.MatchID == "":
		id = &ev.Unfinished.MatchID
	default:
		return nil
	}

	generated, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate match id: %w", err)
	}
	*id = generated
	return nil
}
