package repository

import (
	"context"
	"errors"
	"testing"
	"time"
	"wc3stats/internal/domain"
	"wc3stats/internal/stats"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestStatsRepository_ApplyBatchAccumulates(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db, zerolog.Nop())
	ctx := context.Background()

	batch := stats.DeltaBatch{
		WinLoss: []stats.WinLossDelta{
			{BattleTag: "peter#123", Season: 5, Wins: 1},
		},
		RaceRatios: []stats.RaceRatioDelta{
			{BattleTag: "peter#123", Season: 5, Gateway: domain.GatewayEurope,
				Race: domain.RaceHuman, OpponentRace: domain.RaceOrc, Wins: 1},
		},
	}

	require.NoError(t, repo.ApplyBatch(ctx, "test-consumer", batch, 1))

	batch.WinLoss[0].Wins = 0
	batch.WinLoss[0].Losses = 1
	batch.RaceRatios[0].Wins = 0
	batch.RaceRatios[0].Losses = 1
	require.NoError(t, repo.ApplyBatch(ctx, "test-consumer", batch, 2))

	wl, err := repo.LoadWinLoss(ctx, "peter#123", 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), wl.Wins)
	require.Equal(t, int64(1), wl.Losses)

	ratios, err := repo.LoadRaceRatios(ctx, "peter#123", domain.GatewayEurope, 5)
	require.NoError(t, err)
	require.Len(t, ratios, 1)
	require.Equal(t, int64(1), ratios[0].Wins)
	require.Equal(t, int64(1), ratios[0].Losses)
}

func TestStatsRepository_SeasonsAreSeparateDocuments(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db, zerolog.Nop())
	ctx := context.Background()

	batch := stats.DeltaBatch{WinLoss: []stats.WinLossDelta{
		{BattleTag: "peter#123", Season: 5, Wins: 1},
		{BattleTag: "peter#123", Season: 6, Losses: 1},
	}}
	require.NoError(t, repo.ApplyBatch(ctx, "test-consumer", batch, 1))

	wl5, err := repo.LoadWinLoss(ctx, "peter#123", 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), wl5.Wins)
	require.Equal(t, int64(0), wl5.Losses)

	wl6, err := repo.LoadWinLoss(ctx, "peter#123", 6)
	require.NoError(t, err)
	require.Equal(t, int64(0), wl6.Wins)
	require.Equal(t, int64(1), wl6.Losses)
}

func TestStatsRepository_UnknownPlayerReadsAsZero(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db, zerolog.Nop())

	wl, err := repo.LoadWinLoss(context.Background(), "nobody#0", 5)
	require.NoError(t, err)
	require.Equal(t, int64(0), wl.Total())
}

func TestStatsRepository_GameLengthMinMax(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db, zerolog.Nop())
	ctx := context.Background()

	apply := func(seconds int64, lastID int64) {
		batch := stats.DeltaBatch{GameLengths: []stats.GameLengthDelta{
			{BattleTag: "peter#123", Season: 5, OpponentRace: domain.RaceOrc, Seconds: seconds, Games: 1},
		}}
		require.NoError(t, repo.ApplyBatch(ctx, "test-consumer", batch, lastID))
	}
	apply(300, 1)
	apply(100, 2)
	apply(200, 3)

	lengths, err := repo.LoadGameLength(ctx, "peter#123", 5)
	require.NoError(t, err)
	require.Len(t, lengths, 1)
	require.Equal(t, int64(600), lengths[0].TotalSeconds)
	require.Equal(t, int64(3), lengths[0].Games)
	require.Equal(t, int64(100), lengths[0].MinSeconds)
	require.Equal(t, int64(300), lengths[0].MaxSeconds)
	require.Equal(t, int64(200), lengths[0].AverageSeconds())
}

func TestStatsRepository_ApplyBatchAdvancesCheckpoint(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db, zerolog.Nop())
	checkpoints := NewCheckpointRepository(db, zerolog.Nop())
	ctx := context.Background()

	batch := stats.DeltaBatch{WinLoss: []stats.WinLossDelta{
		{BattleTag: "peter#123", Season: 5, Wins: 1},
	}}
	require.NoError(t, repo.ApplyBatch(ctx, "test-consumer", batch, 42))

	cursor, err := checkpoints.Get(ctx, "test-consumer")
	require.NoError(t, err)
	require.Equal(t, int64(42), cursor)

	// An empty batch still moves the cursor.
	require.NoError(t, repo.ApplyBatch(ctx, "test-consumer", stats.DeltaBatch{}, 50))
	cursor, err = checkpoints.Get(ctx, "test-consumer")
	require.NoError(t, err)
	require.Equal(t, int64(50), cursor)
}

func TestStatsRepository_OngoingMatchLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db, zerolog.Nop())
	ongoing := NewOngoingMatchRepository(db, zerolog.Nop())
	ctx := context.Background()

	started := stats.DeltaBatch{StartedMatches: []domain.OngoingMatch{{
		MatchID:   "m1",
		Season:    5,
		GameMode:  domain.GameMode1v1,
		Gateway:   domain.GatewayEurope,
		Map:       "test",
		StartTime: time.UnixMilli(1700000000000).UTC(),
		Players:   []string{"peter#123", "wolf#456"},
	}}}
	require.NoError(t, repo.ApplyBatch(ctx, "test-consumer", started, 1))

	matches, err := ongoing.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, []string{"peter#123", "wolf#456"}, matches[0].Players)

	ended := stats.DeltaBatch{EndedMatchIDs: []string{"m1"}}
	require.NoError(t, repo.ApplyBatch(ctx, "test-consumer", ended, 2))

	matches, err = ongoing.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Empty(t, matches)

	// Ending an unknown match is a no-op, not an error.
	require.NoError(t, repo.ApplyBatch(ctx, "test-consumer", ended, 3))
}

func TestStatsRepository_StorageFaultIsRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("disk I/O error"))

	repo := NewStatsRepository(db, zerolog.Nop())
	batch := stats.DeltaBatch{WinLoss: []stats.WinLossDelta{
		{BattleTag: "peter#123", Season: 5, Wins: 1},
	}}

	err = repo.ApplyBatch(context.Background(), "test-consumer", batch, 1)
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_FailedUpsertRollsBackWholeBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO win_loss").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO race_ratios").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	repo := NewStatsRepository(db, zerolog.Nop())
	batch := stats.DeltaBatch{
		WinLoss: []stats.WinLossDelta{{BattleTag: "peter#123", Season: 5, Wins: 1}},
		RaceRatios: []stats.RaceRatioDelta{{BattleTag: "peter#123", Season: 5,
			Gateway: domain.GatewayEurope, Race: domain.RaceHuman, OpponentRace: domain.RaceOrc, Wins: 1}},
	}

	err = repo.ApplyBatch(context.Background(), "test-consumer", batch, 1)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}
