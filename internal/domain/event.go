package domain

import "time"

// MatchEvent is a tagged variant over the three event shapes the matchmaking
// service emits. Exactly one of Match (finished/canceled) or Unfinished
// (started) is set, according to Kind. ID is assigned by the event store on
// insert and is the ordering key; OccurredAt is the producer timestamp and is
// informational only.
type MatchEvent struct {
	ID         int64
	Kind       EventKind
	OccurredAt time.Time

	Match      *Match
	Unfinished *UnfinishedMatch

	// Result is the raw score screen from the game client, only present on
	// finished events.
	Result *ScoreScreen

	// WasFromSync marks events backfilled from the matchmaking service
	// instead of arriving via live telemetry.
	WasFromSync bool

	// WasFakeEvent marks synthetic events that must never touch aggregates.
	WasFakeEvent bool
}

// Players returns the player results of whichever match snapshot the event
// carries, or nil.
func (e *MatchEvent) Players() []PlayerMatchResult {
	switch {
	case e.Match != nil:
		return e.Match.Players
	case e.Unfinished != nil:
		return e.Unfinished.Players
	default:
		return nil
	}
}

type Match struct {
	MatchID        string
	State          MatchState
	Season         int
	GameMode       GameMode
	Gateway        Gateway
	Map            string
	MapName        string
	Host           string
	StartTime      time.Time
	EndTime        time.Time
	Players        []PlayerMatchResult
	ServerProvider string
	FloNode        *FloNode
}

// DurationSeconds is the match length in whole seconds, truncated.
func (m *Match) DurationSeconds() int64 {
	if m.EndTime.Before(m.StartTime) {
		return 0
	}
	return int64(m.EndTime.Sub(m.StartTime) / time.Second)
}

// UnfinishedMatch is the snapshot carried by started events. Players have no
// outcome or updated rating yet.
type UnfinishedMatch struct {
	MatchID        string
	State          MatchState
	Season         int
	GameMode       GameMode
	Gateway        Gateway
	Map            string
	MapName        string
	Host           string
	StartTime      time.Time
	Players        []PlayerMatchResult
	ServerProvider string
	FloNode        *FloNode
}

type PlayerMatchResult struct {
	PlayerID  string
	BattleTag string
	Team      int
	Race      Race
	Won       bool
	Country   string

	MmrBefore    Mmr
	MmrAfter     Mmr
	RankingAfter Ranking

	FloPings []FloPing
}

// Mmr is a Glicko-2 style skill estimate. Rd and Vol are always positive;
// RatingLowerBound is a conservative percentile estimate supplied by the
// rating system.
type Mmr struct {
	Rating           float64
	Rd               float64
	Vol              float64
	RatingLowerBound float64
}

// Ranking is the secondary ranking-points score and league placement.
// Rank 0 means unranked.
type Ranking struct {
	Rp          float64
	Rank        int
	LeagueID    int
	LeagueOrder int
}

type FloNode struct {
	ID        int
	Name      string
	Location  string
	CountryID string
}

type FloPing struct {
	NodeID      int
	CurrentPing int
	AvgPing     int
}

// ScoreScreen is the raw end-of-game score detail reported by the game
// client. It is stored with the event but never used for counting.
type ScoreScreen struct {
	LocalPlayerWon bool
	GameName       string
	GameID         string
	Players        []ScoreScreenPlayer
	ElapsedSeconds int
}

type ScoreScreenPlayer struct {
	BattleTag string
	TeamIndex int
	Won       bool
	IsAI      bool
	Heroes    []Hero
}

type Hero struct {
	Icon  string
	Level int
}
