package repository

import (
	"context"
	"testing"
	"time"
	"wc3stats/internal/domain"
	"wc3stats/internal/stats"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func overviewFor(battleTag string, rating, rp float64) domain.PlayerOverview {
	return domain.PlayerOverview{
		BattleTag: battleTag,
		Season:    5,
		Gateway:   domain.GatewayEurope,
		GameMode:  domain.GameMode1v1,
		Race:      domain.RaceHuman,
		Mmr:       domain.Mmr{Rating: rating, Rd: 90, Vol: 0.06},
		Ranking:   domain.Ranking{Rp: rp, Rank: 1, LeagueID: 2, LeagueOrder: 3},
		UpdatedAt: time.UnixMilli(1700000000000).UTC(),
	}
}

func TestOverviewRepository_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewOverviewRepository(db, zerolog.Nop())

	_, err := repo.LoadOverview(context.Background(), "nobody#0")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOverviewRepository_LastWriteWins(t *testing.T) {
	db := newTestDB(t)
	statsRepo := NewStatsRepository(db, zerolog.Nop())
	repo := NewOverviewRepository(db, zerolog.Nop())
	ctx := context.Background()

	batch := stats.DeltaBatch{Overviews: []domain.PlayerOverview{
		overviewFor("peter#123", 1500, 200),
		overviewFor("peter#123", 1520, 210),
	}}
	require.NoError(t, statsRepo.ApplyBatch(ctx, "test-consumer", batch, 1))

	o, err := repo.LoadOverview(ctx, "peter#123")
	require.NoError(t, err)
	require.Equal(t, 1520.0, o.Mmr.Rating)
	require.Equal(t, 210.0, o.Ranking.Rp)
}

func TestOverviewRepository_Rankings(t *testing.T) {
	db := newTestDB(t)
	statsRepo := NewStatsRepository(db, zerolog.Nop())
	repo := NewOverviewRepository(db, zerolog.Nop())
	ctx := context.Background()

	// rp order deliberately disagrees with mmr order
	batch := stats.DeltaBatch{Overviews: []domain.PlayerOverview{
		overviewFor("a#1", 1600, 100),
		overviewFor("b#2", 1500, 300),
		overviewFor("c#3", 1700, 200),
	}}
	require.NoError(t, statsRepo.ApplyBatch(ctx, "test-consumer", batch, 1))

	byMmr, err := repo.LoadRankings(ctx, 5, domain.GatewayEurope, domain.GameMode1v1, SortByMmr, 0, 10)
	require.NoError(t, err)
	require.Len(t, byMmr, 3)
	require.Equal(t, "c#3", byMmr[0].BattleTag)
	require.Equal(t, "a#1", byMmr[1].BattleTag)
	require.Equal(t, "b#2", byMmr[2].BattleTag)

	byRp, err := repo.LoadRankings(ctx, 5, domain.GatewayEurope, domain.GameMode1v1, SortByRp, 0, 10)
	require.NoError(t, err)
	require.Equal(t, "b#2", byRp[0].BattleTag)
	require.Equal(t, "c#3", byRp[1].BattleTag)
	require.Equal(t, "a#1", byRp[2].BattleTag)

	page, err := repo.LoadRankings(ctx, 5, domain.GatewayEurope, domain.GameMode1v1, SortByMmr, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "a#1", page[0].BattleTag)

	total, err := repo.CountRankings(ctx, 5, domain.GatewayEurope, domain.GameMode1v1)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	// Other partitions are empty.
	other, err := repo.LoadRankings(ctx, 6, domain.GatewayEurope, domain.GameMode1v1, SortByMmr, 0, 10)
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestOverviewRepository_TimelineOrderedByEvent(t *testing.T) {
	db := newTestDB(t)
	statsRepo := NewStatsRepository(db, zerolog.Nop())
	repo := NewOverviewRepository(db, zerolog.Nop())
	ctx := context.Background()

	entry := func(rating float64, at time.Time) domain.MmrTimelineEntry {
		return domain.MmrTimelineEntry{
			BattleTag: "peter#123",
			Season:    5,
			Race:      domain.RaceHuman,
			Gateway:   domain.GatewayEurope,
			GameMode:  domain.GameMode1v1,
			MatchTime: at,
			Mmr:       domain.Mmr{Rating: rating, Rd: 90, Vol: 0.06},
		}
	}

	base := time.UnixMilli(1700000000000).UTC()
	// The second sample carries an older producer timestamp; order must still
	// follow event order, not match time.
	batch := stats.DeltaBatch{Timeline: []domain.MmrTimelineEntry{
		entry(1500, base),
		entry(1520, base.Add(-time.Hour)),
	}}
	require.NoError(t, statsRepo.ApplyBatch(ctx, "test-consumer", batch, 1))

	entries, err := repo.LoadTimeline(ctx, "peter#123", domain.RaceHuman, domain.GatewayEurope, 5, domain.GameMode1v1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 1500.0, entries[0].Mmr.Rating)
	require.Equal(t, 1520.0, entries[1].Mmr.Rating)

	// A different race key is a different timeline.
	none, err := repo.LoadTimeline(ctx, "peter#123", domain.RaceOrc, domain.GatewayEurope, 5, domain.GameMode1v1)
	require.NoError(t, err)
	require.Empty(t, none)
}
