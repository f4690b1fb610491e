package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"wc3stats/internal/constants"
	"wc3stats/internal/domain"

	"github.com/rs/zerolog"
)

// OngoingMatchRepository lists the liveness telemetry maintained from
// started and canceled events.
type OngoingMatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewOngoingMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *OngoingMatchRepository {
	return &OngoingMatchRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *OngoingMatchRepository) List(ctx context.Context, offset, limit int) ([]domain.OngoingMatch, error) {
	if limit <= 0 {
		limit = constants.DefaultOngoingPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT match_id, season, game_mode, gateway, map, start_time, players
		FROM ongoing_matches
		ORDER BY start_time DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list ongoing matches: %w", storageErr(err))
	}
	defer rows.Close()

	var matches []domain.OngoingMatch
	for rows.Next() {
		var (
			m        domain.OngoingMatch
			gameMode int
			gateway  int
			players  string
		)
		if err := rows.Scan(&m.MatchID, &m.Season, &gameMode, &gateway, &m.Map, &m.StartTime, &players); err != nil {
			return nil, fmt.Errorf("failed to scan ongoing match: %w", storageErr(err))
		}
		m.GameMode = domain.GameMode(gameMode)
		m.Gateway = domain.Gateway(gateway)
		if err := json.Unmarshal([]byte(players), &m.Players); err != nil {
			return nil, fmt.Errorf("failed to decode ongoing match players: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *OngoingMatchRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ongoing_matches`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ongoing matches: %w", storageErr(err))
	}
	return count, nil
}
