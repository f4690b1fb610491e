package service

import (
	"context"
	"errors"
	"fmt"
	"wc3stats/internal/constants"
	"wc3stats/internal/domain"
	"wc3stats/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PlayerProfile bundles the aggregate views a profile page needs.
type PlayerProfile struct {
	Overview    *domain.PlayerOverview
	WinLoss     *domain.WinLoss
	RaceRatios  []domain.RaceVersusRaceRatio
	GameLengths []domain.GameLength
}

// ProfileService is the read side over derived aggregates. It never blocks
// on ingestion or aggregation; it serves whatever state was last derived.
type ProfileService struct {
	statsRepo    *repository.StatsRepository
	overviewRepo *repository.OverviewRepository
	logger       zerolog.Logger
}

func NewProfileService(statsRepo *repository.StatsRepository, overviewRepo *repository.OverviewRepository, logger zerolog.Logger) *ProfileService {
	return &ProfileService{statsRepo: statsRepo, overviewRepo: overviewRepo, logger: logger}
}

// GetProfile fans out the independent aggregate reads for one player.
func (s *ProfileService) GetProfile(ctx context.Context, battleTag string, season int, gateway domain.Gateway) (*PlayerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	profile := &PlayerProfile{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		overview, err := s.overviewRepo.LoadOverview(gCtx, battleTag)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		profile.Overview = overview
		return nil
	})

	g.Go(func() error {
		winLoss, err := s.statsRepo.LoadWinLoss(gCtx, battleTag, season)
		if err != nil {
			return err
		}
		profile.WinLoss = winLoss
		return nil
	})

	g.Go(func() error {
		ratios, err := s.statsRepo.LoadRaceRatios(gCtx, battleTag, gateway, season)
		if err != nil {
			return err
		}
		profile.RaceRatios = ratios
		return nil
	})

	g.Go(func() error {
		lengths, err := s.statsRepo.LoadGameLength(gCtx, battleTag, season)
		if err != nil {
			return err
		}
		profile.GameLengths = lengths
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("battle_tag", battleTag).Msg("failed to load player profile")
		return nil, fmt.Errorf("failed to load player profile: %w", err)
	}
	return profile, nil
}

func (s *ProfileService) GetOverview(ctx context.Context, battleTag string) (*domain.PlayerOverview, error) {
	return s.overviewRepo.LoadOverview(ctx, battleTag)
}

func (s *ProfileService) GetWinLoss(ctx context.Context, battleTag string, season int) (*domain.WinLoss, error) {
	return s.statsRepo.LoadWinLoss(ctx, battleTag, season)
}

func (s *ProfileService) GetRaceRatios(ctx context.Context, battleTag string, gateway domain.Gateway, season int) ([]domain.RaceVersusRaceRatio, error) {
	return s.statsRepo.LoadRaceRatios(ctx, battleTag, gateway, season)
}

func (s *ProfileService) GetMapRatios(ctx context.Context, battleTag string, gateway domain.Gateway, season int) ([]domain.RaceOnMapRatio, []domain.RaceOnMapVersusRaceRatio, error) {
	maps, err := s.statsRepo.LoadMapRatios(ctx, battleTag, gateway, season)
	if err != nil {
		return nil, nil, err
	}
	mapRaces, err := s.statsRepo.LoadMapRaceRatios(ctx, battleTag, gateway, season)
	if err != nil {
		return nil, nil, err
	}
	return maps, mapRaces, nil
}

func (s *ProfileService) GetGameLength(ctx context.Context, battleTag string, season int) ([]domain.GameLength, error) {
	return s.statsRepo.LoadGameLength(ctx, battleTag, season)
}

func (s *ProfileService) GetMmrTimeline(ctx context.Context, battleTag string, race domain.Race, gateway domain.Gateway, season int, gameMode domain.GameMode) ([]domain.MmrTimelineEntry, error) {
	return s.overviewRepo.LoadTimeline(ctx, battleTag, race, gateway, season, gameMode)
}

// RankingPage is one slice of a season/gateway/gameMode leaderboard.
type RankingPage struct {
	Players []domain.PlayerOverview
	Total   int64
}

// GetRankings sorts and slices already-derived overviews; no computation
// happens on this path.
func (s *ProfileService) GetRankings(ctx context.Context, season int, gateway domain.Gateway, gameMode domain.GameMode, sort repository.RankingSort, offset, limit int) (*RankingPage, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	page := &RankingPage{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		players, err := s.overviewRepo.LoadRankings(gCtx, season, gateway, gameMode, sort, offset, limit)
		if err != nil {
			return err
		}
		page.Players = players
		return nil
	})

	g.Go(func() error {
		total, err := s.overviewRepo.CountRankings(gCtx, season, gateway, gameMode)
		if err != nil {
			return err
		}
		page.Total = total
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load rankings: %w", err)
	}
	return page, nil
}
