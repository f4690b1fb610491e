package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWinLoss_Winrate(t *testing.T) {
	require.Equal(t, 0.0, WinLoss{}.Winrate())
	require.Equal(t, 0.75, WinLoss{Wins: 3, Losses: 1}.Winrate())
	require.Equal(t, int64(4), WinLoss{Wins: 3, Losses: 1}.Total())
}

func TestGameLength_AverageTruncates(t *testing.T) {
	require.Equal(t, int64(0), GameLength{}.AverageSeconds())
	require.Equal(t, int64(333), GameLength{TotalSeconds: 1000, Games: 3}.AverageSeconds())
}

func TestMatch_DurationTruncates(t *testing.T) {
	start := time.UnixMilli(1700000000000).UTC()
	m := Match{StartTime: start, EndTime: start.Add(100*time.Second + 900*time.Millisecond)}
	require.Equal(t, int64(100), m.DurationSeconds())

	// end before start reads as zero, not negative
	m = Match{StartTime: start, EndTime: start.Add(-time.Minute)}
	require.Equal(t, int64(0), m.DurationSeconds())
}

func TestParseHeroIcon(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		diag bool
	}{
		{
			name: "score screen path",
			raw:  `UI\Glues\ScoreScreen\scorescreen-hero-archmage.blp`,
			want: "archmage",
		},
		{
			name: "png extension",
			raw:  "UI/Glues/ScoreScreen/scorescreen-hero-deathknight.png",
			want: "deathknight",
		},
		{
			name: "foreign path passes through",
			raw:  "ReplaceableTextures/CommandButtons/BTNHeroPaladin.blp",
			want: "ReplaceableTextures/CommandButtons/BTNHeroPaladin.blp",
		},
		{
			name: "malformed score screen path",
			raw:  "UI/Glues/ScoreScreen/archmage.blp",
			want: "UI/Glues/ScoreScreen/archmage.blp",
			diag: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diag := ParseHeroIcon(tt.raw)
			require.Equal(t, tt.want, got)
			if tt.diag {
				require.NotNil(t, diag)
			} else {
				require.Nil(t, diag)
			}
		})
	}
}

func TestMatchEvent_ServerInfo(t *testing.T) {
	node := &FloNode{ID: 7, Name: "eu-1"}
	ev := MatchEvent{Match: &Match{
		ServerProvider: "FLO",
		FloNode:        node,
		Players: []PlayerMatchResult{
			{BattleTag: "peter#123", FloPings: []FloPing{{NodeID: 7, CurrentPing: 30, AvgPing: 32}}},
		},
	}}

	info := ev.ServerInfo()
	require.NotNil(t, info)
	require.Equal(t, "FLO", info.ServerProvider)
	require.Equal(t, node, info.FloNode)
	require.Len(t, info.Players, 1)
	require.Equal(t, "peter#123", info.Players[0].BattleTag)

	empty := MatchEvent{}
	require.Nil(t, empty.ServerInfo())
}

func TestEventKind_String(t *testing.T) {
	require.Equal(t, "started", EventStarted.String())
	require.Equal(t, "finished", EventFinished.String())
	require.Equal(t, "canceled", EventCanceled.String())
	require.Equal(t, "unknown", EventKind(42).String())
}
