package domain

import "time"

type WinLoss struct {
	BattleTag string
	Season    int
	Wins      int64
	Losses    int64
}

func (w WinLoss) Total() int64 { return w.Wins + w.Losses }

func (w WinLoss) Winrate() float64 {
	if w.Total() == 0 {
		return 0
	}
	return float64(w.Wins) / float64(w.Total())
}

// RaceVersusRaceRatio is one win/loss counter pair for a player's race
// against an opponent race, per season and gateway.
type RaceVersusRaceRatio struct {
	BattleTag    string
	Season       int
	Gateway      Gateway
	Race         Race
	OpponentRace Race
	Wins         int64
	Losses       int64
}

// RaceOnMapRatio counts a player's race results on a map regardless of the
// opponent race.
type RaceOnMapRatio struct {
	BattleTag string
	Season    int
	Gateway   Gateway
	Race      Race
	Map       string
	Wins      int64
	Losses    int64
}

// RaceOnMapVersusRaceRatio additionally splits map results by opponent race.
type RaceOnMapVersusRaceRatio struct {
	BattleTag    string
	Season       int
	Gateway      Gateway
	Race         Race
	OpponentRace Race
	Map          string
	Wins         int64
	Losses       int64
}

// GameLength is the running game-duration distribution of a player against
// one opponent race. Average is integer-truncated seconds.
type GameLength struct {
	BattleTag    string
	Season       int
	OpponentRace Race
	TotalSeconds int64
	Games        int64
	MinSeconds   int64
	MaxSeconds   int64
}

func (g GameLength) AverageSeconds() int64 {
	if g.Games == 0 {
		return 0
	}
	return g.TotalSeconds / g.Games
}

// MmrTimelineEntry is one append-only sample of a player's rating and
// ranking after a finished match.
type MmrTimelineEntry struct {
	BattleTag string
	Season    int
	Race      Race
	Gateway   Gateway
	GameMode  GameMode
	MatchTime time.Time
	Mmr       Mmr
	Ranking   Ranking
}

// PlayerOverview is the latest-value projection of a player's timeline:
// last-write-wins by event order.
type PlayerOverview struct {
	BattleTag string
	Season    int
	Gateway   Gateway
	GameMode  GameMode
	Race      Race
	Mmr       Mmr
	Ranking   Ranking
	UpdatedAt time.Time
}

// FinishedMatch is the browsable projection of a completed match, derived
// from finished events alongside the stat aggregates. It carries only the
// fields the listing needs; the full snapshot stays in the event log.
type FinishedMatch struct {
	MatchID         string
	Season          int
	GameMode        GameMode
	Gateway         Gateway
	Map             string
	MapName         string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
	Players         []FinishedMatchPlayer
}

type FinishedMatchPlayer struct {
	BattleTag string
	Team      int
	Race      Race
	Won       bool
}

// OngoingMatch is liveness telemetry derived from started events; it never
// feeds win/loss, rating, or game-length aggregates.
type OngoingMatch struct {
	MatchID   string
	Season    int
	GameMode  GameMode
	Gateway   Gateway
	Map       string
	StartTime time.Time
	Players   []string
}
