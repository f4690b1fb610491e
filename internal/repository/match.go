package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"wc3stats/internal/constants"
	"wc3stats/internal/domain"

	"github.com/rs/zerolog"
)

// MatchFilter narrows a finished-match listing. Zero values match everything.
type MatchFilter struct {
	GameMode domain.GameMode
	Gateway  domain.Gateway
}

// MatchRepository serves the browsable finished-match projection maintained
// by StatsRepository.ApplyBatch. Listings are newest first.
type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (f MatchFilter) where() (string, []any) {
	clauses := []string{"1 = 1"}
	var args []any
	if f.GameMode != domain.GameModeUndefined {
		clauses = append(clauses, "game_mode = ?")
		args = append(args, int(f.GameMode))
	}
	if f.Gateway != domain.GatewayUndefined {
		clauses = append(clauses, "gateway = ?")
		args = append(args, int(f.Gateway))
	}
	return strings.Join(clauses, " AND "), args
}

func (r *MatchRepository) List(ctx context.Context, filter MatchFilter, offset, limit int) ([]domain.FinishedMatch, error) {
	where, args := filter.where()
	args = append(args, clampPage(offset, &limit)...)

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT match_id, season, game_mode, gateway, map, map_name,
			start_time, end_time, duration_seconds, players
		FROM finished_matches
		WHERE %s
		ORDER BY end_time DESC, match_id
		LIMIT ? OFFSET ?`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list finished matches: %w", storageErr(err))
	}
	defer rows.Close()

	return scanFinishedMatches(rows)
}

func (r *MatchRepository) Count(ctx context.Context, filter MatchFilter) (int64, error) {
	where, args := filter.where()

	var count int64
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM finished_matches WHERE %s`, where), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count finished matches: %w", storageErr(err))
	}
	return count, nil
}

// ListForPlayer returns the finished matches one player took part in,
// newest first.
func (r *MatchRepository) ListForPlayer(ctx context.Context, battleTag string, offset, limit int) ([]domain.FinishedMatch, error) {
	args := append([]any{battleTag}, clampPage(offset, &limit)...)

	rows, err := r.db.QueryContext(ctx, `
		SELECT m.match_id, m.season, m.game_mode, m.gateway, m.map, m.map_name,
			m.start_time, m.end_time, m.duration_seconds, m.players
		FROM finished_matches m
		JOIN finished_match_players p ON p.match_id = m.match_id
		WHERE p.battle_tag = ?
		ORDER BY m.end_time DESC, m.match_id
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for %s: %w", battleTag, storageErr(err))
	}
	defer rows.Close()

	return scanFinishedMatches(rows)
}

func (r *MatchRepository) CountForPlayer(ctx context.Context, battleTag string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM finished_match_players WHERE battle_tag = ?`, battleTag).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches for %s: %w", battleTag, storageErr(err))
	}
	return count, nil
}

func scanFinishedMatches(rows *sql.Rows) ([]domain.FinishedMatch, error) {
	var matches []domain.FinishedMatch
	for rows.Next() {
		var (
			m        domain.FinishedMatch
			gameMode int
			gateway  int
			players  string
		)
		if err := rows.Scan(&m.MatchID, &m.Season, &gameMode, &gateway, &m.Map, &m.MapName,
			&m.StartTime, &m.EndTime, &m.DurationSeconds, &players); err != nil {
			return nil, fmt.Errorf("failed to scan finished match: %w", storageErr(err))
		}
		m.GameMode = domain.GameMode(gameMode)
		m.Gateway = domain.Gateway(gateway)
		if err := json.Unmarshal([]byte(players), &m.Players); err != nil {
			return nil, fmt.Errorf("failed to decode finished match players: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func clampPage(offset int, limit *int) []any {
	if *limit <= 0 {
		*limit = constants.DefaultMatchPageSize
	}
	if *limit > constants.MaxMatchPageSize {
		*limit = constants.MaxMatchPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return []any{*limit, offset}
}
