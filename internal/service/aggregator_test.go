package service

import (
	"context"
	"database/sql"
	"testing"
	"time"
	"wc3stats/internal/database"
	"wc3stats/internal/domain"
	"wc3stats/internal/rating"
	"wc3stats/internal/repository"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testStack struct {
	db          *sql.DB
	events      *repository.EventRepository
	checkpoints *repository.CheckpointRepository
	stats       *repository.StatsRepository
	overviews   *repository.OverviewRepository
	ingest      *IngestService
	aggregator  *AggregatorService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	events := repository.NewEventRepository(db, log)
	checkpoints := repository.NewCheckpointRepository(db, log)
	statsRepo := repository.NewStatsRepository(db, log)

	return &testStack{
		db:          db,
		events:      events,
		checkpoints: checkpoints,
		stats:       statsRepo,
		overviews:   repository.NewOverviewRepository(db, log),
		ingest:      NewIngestService(events, rating.NewConservativeEstimator(), log),
		aggregator:  NewAggregatorService(events, checkpoints, statsRepo, log),
	}
}

func finishedEvent(matchID string, winnerTag, loserTag string) domain.MatchEvent {
	start := time.UnixMilli(1700000000000).UTC()
	return domain.MatchEvent{
		Kind:       domain.EventFinished,
		OccurredAt: start.Add(10 * time.Minute),
		Match: &domain.Match{
			MatchID:   matchID,
			State:     domain.StateFinished,
			Season:    5,
			GameMode:  domain.GameMode1v1,
			Gateway:   domain.GatewayEurope,
			Map:       "test",
			StartTime: start,
			EndTime:   start.Add(10 * time.Minute),
			Players: []domain.PlayerMatchResult{
				{BattleTag: winnerTag, Team: 0, Race: domain.RaceHuman, Won: true,
					MmrAfter: domain.Mmr{Rating: 1520, Rd: 90, Vol: 0.06}},
				{BattleTag: loserTag, Team: 1, Race: domain.RaceOrc, Won: false,
					MmrAfter: domain.Mmr{Rating: 1480, Rd: 90, Vol: 0.06}},
			},
		},
	}
}

func TestAggregator_ProcessOnceAdvancesCursor(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	_, err := s.ingest.Insert(ctx, []domain.MatchEvent{
		finishedEvent("m1", "peter#123", "wolf#456"),
		finishedEvent("m2", "peter#123", "wolf#456"),
		finishedEvent("m3", "wolf#456", "peter#123"),
	})
	require.NoError(t, err)

	processed, cursor, err := s.aggregator.ProcessOnce(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 3, processed)
	require.Equal(t, int64(3), cursor)

	saved, err := s.checkpoints.Get(ctx, StatsConsumer)
	require.NoError(t, err)
	require.Equal(t, int64(3), saved)

	wl, err := s.stats.LoadWinLoss(ctx, "peter#123", 5)
	require.NoError(t, err)
	require.Equal(t, int64(2), wl.Wins)
	require.Equal(t, int64(1), wl.Losses)
}

func TestAggregator_RestartFromDurableCursorNeverDoubleCounts(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	_, err := s.ingest.Insert(ctx, []domain.MatchEvent{
		finishedEvent("m1", "peter#123", "wolf#456"),
	})
	require.NoError(t, err)

	_, cursor, err := s.aggregator.ProcessOnce(ctx, 0)
	require.NoError(t, err)

	// A restarted consumer resumes from the durable checkpoint and finds
	// nothing new; counts stay put.
	saved, err := s.checkpoints.Get(ctx, StatsConsumer)
	require.NoError(t, err)
	require.Equal(t, cursor, saved)

	processed, cursor2, err := s.aggregator.ProcessOnce(ctx, saved)
	require.NoError(t, err)
	require.Equal(t, 0, processed)
	require.Equal(t, saved, cursor2)

	wl, err := s.stats.LoadWinLoss(ctx, "peter#123", 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), wl.Wins)
	require.Equal(t, int64(0), wl.Losses)
}

func TestAggregator_BatchSizeDoesNotChangeResult(t *testing.T) {
	events := []domain.MatchEvent{
		finishedEvent("m1", "peter#123", "wolf#456"),
		finishedEvent("m2", "wolf#456", "peter#123"),
		finishedEvent("m3", "peter#123", "wolf#456"),
		finishedEvent("m4", "peter#123", "wolf#456"),
	}
	ctx := context.Background()

	oneShot := newTestStack(t)
	_, err := oneShot.ingest.Insert(ctx, events)
	require.NoError(t, err)
	_, _, err = oneShot.aggregator.ProcessOnce(ctx, 0)
	require.NoError(t, err)

	stepped := newTestStack(t)
	stepped.aggregator.batchSize = 1
	_, err = stepped.ingest.Insert(ctx, events)
	require.NoError(t, err)
	cursor := int64(0)
	for {
		processed, next, err := stepped.aggregator.ProcessOnce(ctx, cursor)
		require.NoError(t, err)
		if processed == 0 {
			break
		}
		cursor = next
	}

	// Every aggregate must come out identical, not just win/loss: the batch
	// boundary is an implementation detail of the consumer, never of the math.
	for _, tag := range []string{"peter#123", "wolf#456"} {
		wlA, err := oneShot.stats.LoadWinLoss(ctx, tag, 5)
		require.NoError(t, err)
		wlB, err := stepped.stats.LoadWinLoss(ctx, tag, 5)
		require.NoError(t, err)
		require.Equal(t, wlA, wlB)

		rrA, err := oneShot.stats.LoadRaceRatios(ctx, tag, domain.GatewayEurope, 5)
		require.NoError(t, err)
		rrB, err := stepped.stats.LoadRaceRatios(ctx, tag, domain.GatewayEurope, 5)
		require.NoError(t, err)
		require.Equal(t, rrA, rrB)

		mrA, err := oneShot.stats.LoadMapRatios(ctx, tag, domain.GatewayEurope, 5)
		require.NoError(t, err)
		mrB, err := stepped.stats.LoadMapRatios(ctx, tag, domain.GatewayEurope, 5)
		require.NoError(t, err)
		require.Equal(t, mrA, mrB)

		mrrA, err := oneShot.stats.LoadMapRaceRatios(ctx, tag, domain.GatewayEurope, 5)
		require.NoError(t, err)
		mrrB, err := stepped.stats.LoadMapRaceRatios(ctx, tag, domain.GatewayEurope, 5)
		require.NoError(t, err)
		require.Equal(t, mrrA, mrrB)

		glA, err := oneShot.stats.LoadGameLength(ctx, tag, 5)
		require.NoError(t, err)
		glB, err := stepped.stats.LoadGameLength(ctx, tag, 5)
		require.NoError(t, err)
		require.Equal(t, glA, glB)

		ovA, err := oneShot.overviews.LoadOverview(ctx, tag)
		require.NoError(t, err)
		ovB, err := stepped.overviews.LoadOverview(ctx, tag)
		require.NoError(t, err)
		require.Equal(t, ovA, ovB)
	}

	tlA, err := oneShot.overviews.LoadTimeline(ctx, "peter#123", domain.RaceHuman, domain.GatewayEurope, 5, domain.GameMode1v1)
	require.NoError(t, err)
	tlB, err := stepped.overviews.LoadTimeline(ctx, "peter#123", domain.RaceHuman, domain.GatewayEurope, 5, domain.GameMode1v1)
	require.NoError(t, err)
	require.Equal(t, tlA, tlB)
}

func TestAggregator_FakeEventsLeaveAggregatesUntouched(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	fake := finishedEvent("m1", "peter#123", "wolf#456")
	fake.WasFakeEvent = true
	_, err := s.ingest.Insert(ctx, []domain.MatchEvent{fake})
	require.NoError(t, err)

	processed, cursor, err := s.aggregator.ProcessOnce(ctx, 0)
	require.NoError(t, err)
	// The cursor still moves past the fake event.
	require.Equal(t, 1, processed)
	require.Equal(t, int64(1), cursor)

	wl, err := s.stats.LoadWinLoss(ctx, "peter#123", 5)
	require.NoError(t, err)
	require.Equal(t, int64(0), wl.Total())
}

func TestAggregator_MalformedPlayerDoesNotStallConsumer(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	broken := finishedEvent("m1", "peter#123", "wolf#456")
	broken.Match.Players[1].BattleTag = ""
	_, err := s.ingest.Insert(ctx, []domain.MatchEvent{
		broken,
		finishedEvent("m2", "peter#123", "wolf#456"),
	})
	require.NoError(t, err)

	processed, cursor, err := s.aggregator.ProcessOnce(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 2, processed)
	require.Equal(t, int64(2), cursor)

	// The valid entries of the broken event and the whole second event count.
	wl, err := s.stats.LoadWinLoss(ctx, "peter#123", 5)
	require.NoError(t, err)
	require.Equal(t, int64(2), wl.Wins)

	wl, err = s.stats.LoadWinLoss(ctx, "wolf#456", 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), wl.Losses)
}

func TestAggregator_RunStopsOnCancel(t *testing.T) {
	s := newTestStack(t)
	s.aggregator.pollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.aggregator.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("aggregator did not stop after cancel")
	}
}
