// Package stats folds match events into aggregate deltas. Derivation is
// pure: the same event always yields the same deltas, which is what makes
// replaying the log reproduce identical aggregate state.
package stats

import (
	"fmt"
	"wc3stats/internal/domain"
)

// Diagnostic reports a player entry that could not be folded. The event is
// not aborted; the caller decides whether to log.
type Diagnostic struct {
	EventID   int64
	BattleTag string
	Reason    string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("event %d, player %q: %s", d.EventID, d.BattleTag, d.Reason)
}

type WinLossDelta struct {
	BattleTag string
	Season    int
	Wins      int64
	Losses    int64
}

type RaceRatioDelta struct {
	BattleTag    string
	Season       int
	Gateway      domain.Gateway
	Race         domain.Race
	OpponentRace domain.Race
	Wins         int64
	Losses       int64
}

type MapRatioDelta struct {
	BattleTag string
	Season    int
	Gateway   domain.Gateway
	Race      domain.Race
	Map       string
	Wins      int64
	Losses    int64
}

type MapRaceRatioDelta struct {
	BattleTag    string
	Season       int
	Gateway      domain.Gateway
	Race         domain.Race
	OpponentRace domain.Race
	Map          string
	Wins         int64
	Losses       int64
}

type GameLengthDelta struct {
	BattleTag    string
	Season       int
	OpponentRace domain.Race
	Seconds      int64
	Games        int64
}

// DeltaBatch is everything one event contributes to the aggregate store.
// Counters are additive; timeline entries append; overviews overwrite.
type DeltaBatch struct {
	WinLoss     []WinLossDelta
	RaceRatios  []RaceRatioDelta
	MapRatios   []MapRatioDelta
	MapRaces    []MapRaceRatioDelta
	GameLengths []GameLengthDelta
	Timeline    []domain.MmrTimelineEntry
	Overviews   []domain.PlayerOverview

	// Browsable finished-match records, one per non-fake finished event.
	FinishedMatches []domain.FinishedMatch

	// Liveness telemetry from started/canceled/finished events.
	StartedMatches []domain.OngoingMatch
	EndedMatchIDs  []string
}

func (b DeltaBatch) Empty() bool {
	return len(b.WinLoss) == 0 && len(b.RaceRatios) == 0 && len(b.MapRatios) == 0 &&
		len(b.MapRaces) == 0 && len(b.GameLengths) == 0 && len(b.Timeline) == 0 &&
		len(b.Overviews) == 0 && len(b.FinishedMatches) == 0 &&
		len(b.StartedMatches) == 0 && len(b.EndedMatchIDs) == 0
}

// Merge appends another batch. Later overviews win, matching event order.
func (b *DeltaBatch) Merge(other DeltaBatch) {
	b.WinLoss = append(b.WinLoss, other.WinLoss...)
	b.RaceRatios = append(b.RaceRatios, other.RaceRatios...)
	b.MapRatios = append(b.MapRatios, other.MapRatios...)
	b.MapRaces = append(b.MapRaces, other.MapRaces...)
	b.GameLengths = append(b.GameLengths, other.GameLengths...)
	b.Timeline = append(b.Timeline, other.Timeline...)
	b.Overviews = append(b.Overviews, other.Overviews...)
	b.FinishedMatches = append(b.FinishedMatches, other.FinishedMatches...)
	b.StartedMatches = append(b.StartedMatches, other.StartedMatches...)
	b.EndedMatchIDs = append(b.EndedMatchIDs, other.EndedMatchIDs...)
}

// Derive folds one event into aggregate deltas. Fake events and events
// without a usable snapshot yield an empty batch. A malformed player entry
// is reported as a diagnostic and skipped without aborting the event.
func Derive(ev domain.MatchEvent) (DeltaBatch, []Diagnostic) {
	if ev.WasFakeEvent {
		return DeltaBatch{}, nil
	}
	switch ev.Kind {
	case domain.EventFinished:
		return deriveFinished(ev)
	case domain.EventStarted:
		return deriveStarted(ev), nil
	case domain.EventCanceled:
		return deriveCanceled(ev), nil
	default:
		return DeltaBatch{}, []Diagnostic{{EventID: ev.ID, Reason: "unknown event kind"}}
	}
}

func deriveFinished(ev domain.MatchEvent) (DeltaBatch, []Diagnostic) {
	var batch DeltaBatch
	if ev.Match == nil {
		return batch, nil
	}

	match := ev.Match
	batch.EndedMatchIDs = append(batch.EndedMatchIDs, match.MatchID)
	duration := match.DurationSeconds()

	record := domain.FinishedMatch{
		MatchID:         match.MatchID,
		Season:          match.Season,
		GameMode:        match.GameMode,
		Gateway:         match.Gateway,
		Map:             match.Map,
		MapName:         match.MapName,
		StartTime:       match.StartTime,
		EndTime:         match.EndTime,
		DurationSeconds: duration,
	}
	for _, p := range match.Players {
		record.Players = append(record.Players, domain.FinishedMatchPlayer{
			BattleTag: p.BattleTag,
			Team:      p.Team,
			Race:      p.Race,
			Won:       p.Won,
		})
	}
	batch.FinishedMatches = append(batch.FinishedMatches, record)

	var diags []Diagnostic
	for _, p := range match.Players {
		if p.BattleTag == "" {
			diags = append(diags, Diagnostic{EventID: ev.ID, Reason: "player has no battle tag"})
			continue
		}

		opponents := opponentsOf(match.Players, p.Team)
		if len(opponents) == 0 {
			diags = append(diags, Diagnostic{EventID: ev.ID, BattleTag: p.BattleTag, Reason: "player has no opponents"})
			continue
		}

		wins, losses := outcome(p.Won)

		for _, o := range opponents {
			batch.RaceRatios = append(batch.RaceRatios, RaceRatioDelta{
				BattleTag:    p.BattleTag,
				Season:       match.Season,
				Gateway:      match.Gateway,
				Race:         p.Race,
				OpponentRace: o.Race,
				Wins:         wins,
				Losses:       losses,
			})
			batch.MapRatios = append(batch.MapRatios, MapRatioDelta{
				BattleTag: p.BattleTag,
				Season:    match.Season,
				Gateway:   match.Gateway,
				Race:      p.Race,
				Map:       match.Map,
				Wins:      wins,
				Losses:    losses,
			})
			batch.MapRaces = append(batch.MapRaces, MapRaceRatioDelta{
				BattleTag:    p.BattleTag,
				Season:       match.Season,
				Gateway:      match.Gateway,
				Race:         p.Race,
				OpponentRace: o.Race,
				Map:          match.Map,
				Wins:         wins,
				Losses:       losses,
			})
			batch.GameLengths = append(batch.GameLengths, GameLengthDelta{
				BattleTag:    p.BattleTag,
				Season:       match.Season,
				OpponentRace: o.Race,
				Seconds:      duration,
				Games:        1,
			})
		}

		batch.WinLoss = append(batch.WinLoss, WinLossDelta{
			BattleTag: p.BattleTag,
			Season:    match.Season,
			Wins:      wins,
			Losses:    losses,
		})

		batch.Timeline = append(batch.Timeline, domain.MmrTimelineEntry{
			BattleTag: p.BattleTag,
			Season:    match.Season,
			Race:      p.Race,
			Gateway:   match.Gateway,
			GameMode:  match.GameMode,
			MatchTime: match.EndTime,
			Mmr:       p.MmrAfter,
			Ranking:   p.RankingAfter,
		})

		batch.Overviews = append(batch.Overviews, domain.PlayerOverview{
			BattleTag: p.BattleTag,
			Season:    match.Season,
			Gateway:   match.Gateway,
			GameMode:  match.GameMode,
			Race:      p.Race,
			Mmr:       p.MmrAfter,
			Ranking:   p.RankingAfter,
			UpdatedAt: match.EndTime,
		})
	}

	return batch, diags
}

func deriveStarted(ev domain.MatchEvent) DeltaBatch {
	var batch DeltaBatch
	m := ev.Unfinished
	if m == nil {
		return batch
	}

	ongoing := domain.OngoingMatch{
		MatchID:   m.MatchID,
		Season:    m.Season,
		GameMode:  m.GameMode,
		Gateway:   m.Gateway,
		Map:       m.Map,
		StartTime: m.StartTime,
	}
	for _, p := range m.Players {
		ongoing.Players = append(ongoing.Players, p.BattleTag)
	}
	batch.StartedMatches = append(batch.StartedMatches, ongoing)
	return batch
}

func deriveCanceled(ev domain.MatchEvent) DeltaBatch {
	var batch DeltaBatch
	if ev.Match != nil {
		batch.EndedMatchIDs = append(batch.EndedMatchIDs, ev.Match.MatchID)
	}
	return batch
}

// opponentsOf returns every player on a different team. Works for any number
// of teams and players, not just 1v1.
func opponentsOf(players []domain.PlayerMatchResult, team int) []domain.PlayerMatchResult {
	var opponents []domain.PlayerMatchResult
	for _, p := range players {
		if p.Team != team {
			opponents = append(opponents, p)
		}
	}
	return opponents
}

func outcome(won bool) (wins, losses int64) {
	if won {
		return 1, 0
	}
	return 0, 1
}
