package repository

import (
	"context"
	"database/sql"
	"fmt"
	"wc3stats/internal/constants"
	"wc3stats/internal/domain"

	"github.com/rs/zerolog"
)

// RankingSort selects which score orders a ranking page.
type RankingSort string

const (
	SortByMmr RankingSort = "mmr"
	SortByRp  RankingSort = "rp"
)

// OverviewRepository serves the latest-value projections: player overviews,
// MMR/RP timelines, and the ranking pages derived from them. It is read-only
// except through StatsRepository.ApplyBatch.
type OverviewRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewOverviewRepository(sqlDB *sql.DB, logger zerolog.Logger) *OverviewRepository {
	return &OverviewRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *OverviewRepository) LoadOverview(ctx context.Context, battleTag string) (*domain.PlayerOverview, error) {
	o := &domain.PlayerOverview{BattleTag: battleTag}
	var gateway, gameMode, race int
	err := r.db.QueryRowContext(ctx, `
		SELECT season, gateway, game_mode, race,
			rating, rd, vol, rating_lower_bound, rp, rank, league_id, league_order, updated_at
		FROM player_overviews WHERE battle_tag = ?`, battleTag).Scan(
		&o.Season, &gateway, &gameMode, &race,
		&o.Mmr.Rating, &o.Mmr.Rd, &o.Mmr.Vol, &o.Mmr.RatingLowerBound,
		&o.Ranking.Rp, &o.Ranking.Rank, &o.Ranking.LeagueID, &o.Ranking.LeagueOrder, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load overview: %w", storageErr(err))
	}
	o.Gateway = domain.Gateway(gateway)
	o.GameMode = domain.GameMode(gameMode)
	o.Race = domain.Race(race)
	return o, nil
}

// LoadTimeline returns the append-only MMR/RP samples for one compound key,
// in event order.
func (r *OverviewRepository) LoadTimeline(ctx context.Context, battleTag string, race domain.Race, gateway domain.Gateway, season int, gameMode domain.GameMode) ([]domain.MmrTimelineEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT match_time, rating, rd, vol, rating_lower_bound, rp, rank, league_id, league_order
		FROM mmr_timeline
		WHERE battle_tag = ? AND season = ? AND race = ? AND gateway = ? AND game_mode = ?
		ORDER BY id ASC`,
		battleTag, season, int(race), int(gateway), int(gameMode))
	if err != nil {
		return nil, fmt.Errorf("failed to load mmr timeline: %w", storageErr(err))
	}
	defer rows.Close()

	var entries []domain.MmrTimelineEntry
	for rows.Next() {
		e := domain.MmrTimelineEntry{
			BattleTag: battleTag,
			Season:    season,
			Race:      race,
			Gateway:   gateway,
			GameMode:  gameMode,
		}
		if err := rows.Scan(&e.MatchTime,
			&e.Mmr.Rating, &e.Mmr.Rd, &e.Mmr.Vol, &e.Mmr.RatingLowerBound,
			&e.Ranking.Rp, &e.Ranking.Rank, &e.Ranking.LeagueID, &e.Ranking.LeagueOrder,
		); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", storageErr(err))
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LoadRankings pages overviews within a season/gateway/gameMode partition,
// ordered by rating or ranking points descending. Sorting and slicing only;
// no derivation happens here.
func (r *OverviewRepository) LoadRankings(ctx context.Context, season int, gateway domain.Gateway, gameMode domain.GameMode, sort RankingSort, offset, limit int) ([]domain.PlayerOverview, error) {
	if limit <= 0 {
		limit = constants.DefaultRankingPageSize
	}
	if limit > constants.MaxRankingPageSize {
		limit = constants.MaxRankingPageSize
	}
	if offset < 0 {
		offset = 0
	}

	orderBy := "rating DESC"
	if sort == SortByRp {
		orderBy = "rp DESC"
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT battle_tag, season, gateway, game_mode, race,
			rating, rd, vol, rating_lower_bound, rp, rank, league_id, league_order, updated_at
		FROM player_overviews
		WHERE season = ? AND gateway = ? AND game_mode = ?
		ORDER BY %s
		LIMIT ? OFFSET ?`, orderBy),
		season, int(gateway), int(gameMode), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load rankings: %w", storageErr(err))
	}
	defer rows.Close()

	var overviews []domain.PlayerOverview
	for rows.Next() {
		var o domain.PlayerOverview
		var gw, gm, race int
		if err := rows.Scan(&o.BattleTag, &o.Season, &gw, &gm, &race,
			&o.Mmr.Rating, &o.Mmr.Rd, &o.Mmr.Vol, &o.Mmr.RatingLowerBound,
			&o.Ranking.Rp, &o.Ranking.Rank, &o.Ranking.LeagueID, &o.Ranking.LeagueOrder, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", storageErr(err))
		}
		o.Gateway = domain.Gateway(gw)
		o.GameMode = domain.GameMode(gm)
		o.Race = domain.Race(race)
		overviews = append(overviews, o)
	}
	return overviews, rows.Err()
}

// CountRankings returns the partition size, for pagination metadata.
func (r *OverviewRepository) CountRankings(ctx context.Context, season int, gateway domain.Gateway, gameMode domain.GameMode) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM player_overviews
		WHERE season = ? AND gateway = ? AND game_mode = ?`,
		season, int(gateway), int(gameMode)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rankings: %w", storageErr(err))
	}
	return count, nil
}
