package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"wc3stats/internal/domain"
	"wc3stats/internal/stats"

	"github.com/rs/zerolog"
)

// StatsRepository owns the derived aggregate documents. All counter updates
// are expressed as atomic merges in SQL (insert-or-add on conflict), never
// as read-then-write round trips, so concurrent writers cannot lose updates.
type StatsRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStatsRepository(sqlDB *sql.DB, logger zerolog.Logger) *StatsRepository {
	return &StatsRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// ApplyBatch applies every delta of a derivation batch and advances the
// consumer checkpoint in one transaction. Committing the checkpoint with the
// writes makes counting exactly-once per event identifier: a replayed batch
// after a crash starts from the durable cursor and can never double-count.
func (r *StatsRepository) ApplyBatch(ctx context.Context, consumer string, batch stats.DeltaBatch, lastEventID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", storageErr(err))
	}
	defer tx.Rollback()

	for _, d := range batch.WinLoss {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO win_loss (battle_tag, season, wins, losses)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (battle_tag, season) DO UPDATE SET
				wins = wins + excluded.wins,
				losses = losses + excluded.losses`,
			d.BattleTag, d.Season, d.Wins, d.Losses,
		); err != nil {
			return fmt.Errorf("failed to upsert win/loss: %w", storageErr(err))
		}
	}

	for _, d := range batch.RaceRatios {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO race_ratios (battle_tag, season, gateway, race, opponent_race, wins, losses)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (battle_tag, season, gateway, race, opponent_race) DO UPDATE SET
				wins = wins + excluded.wins,
				losses = losses + excluded.losses`,
			d.BattleTag, d.Season, int(d.Gateway), int(d.Race), int(d.OpponentRace), d.Wins, d.Losses,
		); err != nil {
			return fmt.Errorf("failed to upsert race ratio: %w", storageErr(err))
		}
	}

	for _, d := range batch.MapRatios {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO map_ratios (battle_tag, season, gateway, race, map, wins, losses)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (battle_tag, season, gateway, race, map) DO UPDATE SET
				wins = wins + excluded.wins,
				losses = losses + excluded.losses`,
			d.BattleTag, d.Season, int(d.Gateway), int(d.Race), d.Map, d.Wins, d.Losses,
		); err != nil {
			return fmt.Errorf("failed to upsert map ratio: %w", storageErr(err))
		}
	}

	for _, d := range batch.MapRaces {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO map_race_ratios (battle_tag, season, gateway, race, opponent_race, map, wins, losses)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (battle_tag, season, gateway, race, opponent_race, map) DO UPDATE SET
				wins = wins + excluded.wins,
				losses = losses + excluded.losses`,
			d.BattleTag, d.Season, int(d.Gateway), int(d.Race), int(d.OpponentRace), d.Map, d.Wins, d.Losses,
		); err != nil {
			return fmt.Errorf("failed to upsert map/race ratio: %w", storageErr(err))
		}
	}

	for _, d := range batch.GameLengths {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO game_lengths (battle_tag, season, opponent_race, total_seconds, games, min_seconds, max_seconds)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (battle_tag, season, opponent_race) DO UPDATE SET
				total_seconds = total_seconds + excluded.total_seconds,
				games = games + excluded.games,
				min_seconds = MIN(min_seconds, excluded.min_seconds),
				max_seconds = MAX(max_seconds, excluded.max_seconds)`,
			d.BattleTag, d.Season, int(d.OpponentRace), d.Seconds, d.Games, d.Seconds, d.Seconds,
		); err != nil {
			return fmt.Errorf("failed to upsert game length: %w", storageErr(err))
		}
	}

	for _, e := range batch.Timeline {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO mmr_timeline (battle_tag, season, race, gateway, game_mode, match_time,
				rating, rd, vol, rating_lower_bound, rp, rank, league_id, league_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.BattleTag, e.Season, int(e.Race), int(e.Gateway), int(e.GameMode), e.MatchTime.UTC(),
			e.Mmr.Rating, e.Mmr.Rd, e.Mmr.Vol, e.Mmr.RatingLowerBound,
			e.Ranking.Rp, e.Ranking.Rank, e.Ranking.LeagueID, e.Ranking.LeagueOrder,
		); err != nil {
			return fmt.Errorf("failed to append timeline entry: %w", storageErr(err))
		}
	}

	for _, o := range batch.Overviews {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO player_overviews (battle_tag, season, gateway, game_mode, race,
				rating, rd, vol, rating_lower_bound, rp, rank, league_id, league_order, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (battle_tag) DO UPDATE SET
				season = excluded.season,
				gateway = excluded.gateway,
				game_mode = excluded.game_mode,
				race = excluded.race,
				rating = excluded.rating,
				rd = excluded.rd,
				vol = excluded.vol,
				rating_lower_bound = excluded.rating_lower_bound,
				rp = excluded.rp,
				rank = excluded.rank,
				league_id = excluded.league_id,
				league_order = excluded.league_order,
				updated_at = excluded.updated_at`,
			o.BattleTag, o.Season, int(o.Gateway), int(o.GameMode), int(o.Race),
			o.Mmr.Rating, o.Mmr.Rd, o.Mmr.Vol, o.Mmr.RatingLowerBound,
			o.Ranking.Rp, o.Ranking.Rank, o.Ranking.LeagueID, o.Ranking.LeagueOrder, o.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to upsert player overview: %w", storageErr(err))
		}
	}

	for _, m := range batch.FinishedMatches {
		players, err := json.Marshal(m.Players)
		if err != nil {
			return fmt.Errorf("failed to encode finished match players: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO finished_matches (match_id, season, game_mode, gateway, map, map_name,
				start_time, end_time, duration_seconds, players)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (match_id) DO UPDATE SET
				season = excluded.season,
				game_mode = excluded.game_mode,
				gateway = excluded.gateway,
				map = excluded.map,
				map_name = excluded.map_name,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				duration_seconds = excluded.duration_seconds,
				players = excluded.players`,
			m.MatchID, m.Season, int(m.GameMode), int(m.Gateway), m.Map, m.MapName,
			m.StartTime.UTC(), m.EndTime.UTC(), m.DurationSeconds, string(players),
		); err != nil {
			return fmt.Errorf("failed to upsert finished match: %w", storageErr(err))
		}
		for _, p := range m.Players {
			if p.BattleTag == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO finished_match_players (match_id, battle_tag)
				VALUES (?, ?)
				ON CONFLICT (match_id, battle_tag) DO NOTHING`,
				m.MatchID, p.BattleTag,
			); err != nil {
				return fmt.Errorf("failed to index finished match player: %w", storageErr(err))
			}
		}
	}

	for _, m := range batch.StartedMatches {
		players, err := json.Marshal(m.Players)
		if err != nil {
			return fmt.Errorf("failed to encode ongoing match players: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ongoing_matches (match_id, season, game_mode, gateway, map, start_time, players)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (match_id) DO UPDATE SET
				season = excluded.season,
				game_mode = excluded.game_mode,
				gateway = excluded.gateway,
				map = excluded.map,
				start_time = excluded.start_time,
				players = excluded.players`,
			m.MatchID, m.Season, int(m.GameMode), int(m.Gateway), m.Map, m.StartTime.UTC(), string(players),
		); err != nil {
			return fmt.Errorf("failed to upsert ongoing match: %w", storageErr(err))
		}
	}

	for _, matchID := range batch.EndedMatchIDs {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM ongoing_matches WHERE match_id = ?`, matchID,
		); err != nil {
			return fmt.Errorf("failed to remove ongoing match: %w", storageErr(err))
		}
	}

	if err := saveCheckpointInTx(ctx, tx, consumer, lastEventID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit aggregate batch: %w", storageErr(err))
	}

	return nil
}

func (r *StatsRepository) LoadWinLoss(ctx context.Context, battleTag string, season int) (*domain.WinLoss, error) {
	wl := &domain.WinLoss{BattleTag: battleTag, Season: season}
	err := r.db.QueryRowContext(ctx, `
		SELECT wins, losses FROM win_loss WHERE battle_tag = ? AND season = ?`,
		battleTag, season).Scan(&wl.Wins, &wl.Losses)
	if err == sql.ErrNoRows {
		return wl, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load win/loss: %w", storageErr(err))
	}
	return wl, nil
}

func (r *StatsRepository) LoadRaceRatios(ctx context.Context, battleTag string, gateway domain.Gateway, season int) ([]domain.RaceVersusRaceRatio, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT race, opponent_race, wins, losses
		FROM race_ratios
		WHERE battle_tag = ? AND gateway = ? AND season = ?
		ORDER BY race, opponent_race`,
		battleTag, int(gateway), season)
	if err != nil {
		return nil, fmt.Errorf("failed to load race ratios: %w", storageErr(err))
	}
	defer rows.Close()

	var ratios []domain.RaceVersusRaceRatio
	for rows.Next() {
		ratio := domain.RaceVersusRaceRatio{BattleTag: battleTag, Season: season, Gateway: gateway}
		var race, oppRace int
		if err := rows.Scan(&race, &oppRace, &ratio.Wins, &ratio.Losses); err != nil {
			return nil, fmt.Errorf("failed to scan race ratio: %w", storageErr(err))
		}
		ratio.Race = domain.Race(race)
		ratio.OpponentRace = domain.Race(oppRace)
		ratios = append(ratios, ratio)
	}
	return ratios, rows.Err()
}

func (r *StatsRepository) LoadMapRatios(ctx context.Context, battleTag string, gateway domain.Gateway, season int) ([]domain.RaceOnMapRatio, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT race, map, wins, losses
		FROM map_ratios
		WHERE battle_tag = ? AND gateway = ? AND season = ?
		ORDER BY map, race`,
		battleTag, int(gateway), season)
	if err != nil {
		return nil, fmt.Errorf("failed to load map ratios: %w", storageErr(err))
	}
	defer rows.Close()

	var ratios []domain.RaceOnMapRatio
	for rows.Next() {
		ratio := domain.RaceOnMapRatio{BattleTag: battleTag, Season: season, Gateway: gateway}
		var race int
		if err := rows.Scan(&race, &ratio.Map, &ratio.Wins, &ratio.Losses); err != nil {
			return nil, fmt.Errorf("failed to scan map ratio: %w", storageErr(err))
		}
		ratio.Race = domain.Race(race)
		ratios = append(ratios, ratio)
	}
	return ratios, rows.Err()
}

func (r *StatsRepository) LoadMapRaceRatios(ctx context.Context, battleTag string, gateway domain.Gateway, season int) ([]domain.RaceOnMapVersusRaceRatio, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT race, opponent_race, map, wins, losses
		FROM map_race_ratios
		WHERE battle_tag = ? AND gateway = ? AND season = ?
		ORDER BY map, race, opponent_race`,
		battleTag, int(gateway), season)
	if err != nil {
		return nil, fmt.Errorf("failed to load map/race ratios: %w", storageErr(err))
	}
	defer rows.Close()

	var ratios []domain.RaceOnMapVersusRaceRatio
	for rows.Next() {
		ratio := domain.RaceOnMapVersusRaceRatio{BattleTag: battleTag, Season: season, Gateway: gateway}
		var race, oppRace int
		if err := rows.Scan(&race, &oppRace, &ratio.Map, &ratio.Wins, &ratio.Losses); err != nil {
			return nil, fmt.Errorf("failed to scan map/race ratio: %w", storageErr(err))
		}
		ratio.Race = domain.Race(race)
		ratio.OpponentRace = domain.Race(oppRace)
		ratios = append(ratios, ratio)
	}
	return ratios, rows.Err()
}

func (r *StatsRepository) LoadGameLength(ctx context.Context, battleTag string, season int) ([]domain.GameLength, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT opponent_race, total_seconds, games, min_seconds, max_seconds
		FROM game_lengths
		WHERE battle_tag = ? AND season = ?
		ORDER BY opponent_race`,
		battleTag, season)
	if err != nil {
		return nil, fmt.Errorf("failed to load game lengths: %w", storageErr(err))
	}
	defer rows.Close()

	var lengths []domain.GameLength
	for rows.Next() {
		gl := domain.GameLength{BattleTag: battleTag, Season: season}
		var oppRace int
		if err := rows.Scan(&oppRace, &gl.TotalSeconds, &gl.Games, &gl.MinSeconds, &gl.MaxSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan game length: %w", storageErr(err))
		}
		gl.OpponentRace = domain.Race(oppRace)
		lengths = append(lengths, gl)
	}
	return lengths, rows.Err()
}
