package api

import (
	"time"
	"wc3stats/internal/domain"
)

// Wire DTOs for match events as the matchmaking service emits them. The same
// shapes arrive on the ingest endpoint and from the sync client. Times are
// unix milliseconds.

type MatchEventDTO struct {
	Kind         string    `json:"kind"`
	OccurredAt   int64     `json:"occurredAt,omitempty"`
	Match        *MatchDTO `json:"match,omitempty"`
	Result       *ScoreDTO `json:"result,omitempty"`
	WasFromSync  bool      `json:"wasFromSync,omitempty"`
	WasFakeEvent bool      `json:"wasFakeEvent,omitempty"`
}

type MatchDTO struct {
	ID             string      `json:"id"`
	State          int         `json:"state"`
	Season         int         `json:"season"`
	GameMode       int         `json:"gameMode"`
	Gateway        int         `json:"gateway"`
	Map            string      `json:"map"`
	MapName        string      `json:"mapName,omitempty"`
	Host           string      `json:"host,omitempty"`
	StartTime      int64       `json:"startTime"`
	EndTime        int64       `json:"endTime,omitempty"`
	Players        []PlayerDTO `json:"players"`
	ServerProvider string      `json:"serverProvider,omitempty"`
	FloNode        *FloNodeDTO `json:"floNode,omitempty"`
}

type PlayerDTO struct {
	ID             string       `json:"id"`
	BattleTag      string       `json:"battleTag"`
	Team           int          `json:"team"`
	Race           int          `json:"race"`
	Won            bool         `json:"won"`
	Country        string       `json:"country,omitempty"`
	Mmr            MmrDTO       `json:"mmr"`
	UpdatedMmr     MmrDTO       `json:"updatedMmr"`
	UpdatedRanking RankingDTO   `json:"updatedRanking"`
	FloPings       []FloPingDTO `json:"floPings,omitempty"`
}

type MmrDTO struct {
	Rating           float64 `json:"rating"`
	Rd               float64 `json:"rd"`
	Vol              float64 `json:"vol"`
	RatingLowerBound float64 `json:"ratingLowerBound"`
}

type RankingDTO struct {
	Rp          float64 `json:"rp"`
	Rank        int     `json:"rank"`
	LeagueID    int     `json:"leagueId"`
	LeagueOrder int     `json:"leagueOrder"`
}

type FloNodeDTO struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	CountryID string `json:"countryId"`
}

type FloPingDTO struct {
	NodeID      int `json:"nodeId"`
	CurrentPing int `json:"currentPing"`
	AvgPing     int `json:"avgPing"`
}

type ScoreDTO struct {
	LocalPlayerWon bool             `json:"localPlayerWon"`
	GameName       string           `json:"gameName,omitempty"`
	GameID         string           `json:"gameId,omitempty"`
	ElapsedSeconds int              `json:"elapsedGameTimeTotalSeconds,omitempty"`
	Players        []ScorePlayerDTO `json:"players,omitempty"`
}

type ScorePlayerDTO struct {
	BattleTag string    `json:"battleTag"`
	TeamIndex int       `json:"teamIndex"`
	Won       bool      `json:"won"`
	IsAI      bool      `json:"isAi"`
	Heroes    []HeroDTO `json:"heroes,omitempty"`
}

type HeroDTO struct {
	Icon  string `json:"icon"`
	Level int    `json:"level"`
}

// ToDomain converts a wire event to the domain model. Unknown kinds map to
// an event with Kind zero, which ingestion validation rejects.
func (d MatchEventDTO) ToDomain() domain.MatchEvent {
	ev := domain.MatchEvent{
		OccurredAt:   msToTime(d.OccurredAt),
		WasFromSync:  d.WasFromSync,
		WasFakeEvent: d.WasFakeEvent,
	}

	switch d.Kind {
	case "started":
		ev.Kind = domain.EventStarted
		if d.Match != nil {
			ev.Unfinished = d.Match.toUnfinished()
		}
	case "finished":
		ev.Kind = domain.EventFinished
		if d.Match != nil {
			ev.Match = d.Match.toMatch()
		}
	case "canceled":
		ev.Kind = domain.EventCanceled
		if d.Match != nil {
			ev.Match = d.Match.toMatch()
		}
	}

	if d.Result != nil {
		ev.Result = d.Result.toDomain()
	}
	return ev
}

func (d *MatchDTO) toMatch() *domain.Match {
	m := &domain.Match{
		MatchID:        d.ID,
		State:          domain.MatchState(d.State),
		Season:         d.Season,
		GameMode:       domain.GameMode(d.GameMode),
		Gateway:        domain.Gateway(d.Gateway),
		Map:            d.Map,
		MapName:        d.MapName,
		Host:           d.Host,
		StartTime:      msToTime(d.StartTime),
		EndTime:        msToTime(d.EndTime),
		ServerProvider: d.ServerProvider,
		FloNode:        d.FloNode.toDomain(),
	}
	for _, p := range d.Players {
		m.Players = append(m.Players, p.toDomain())
	}
	return m
}

func (d *MatchDTO) toUnfinished() *domain.UnfinishedMatch {
	m := &domain.UnfinishedMatch{
		MatchID:        d.ID,
		State:          domain.MatchState(d.State),
		Season:         d.Season,
		GameMode:       domain.GameMode(d.GameMode),
		Gateway:        domain.Gateway(d.Gateway),
		Map:            d.Map,
		MapName:        d.MapName,
		Host:           d.Host,
		StartTime:      msToTime(d.StartTime),
		ServerProvider: d.ServerProvider,
		FloNode:        d.FloNode.toDomain(),
	}
	for _, p := range d.Players {
		m.Players = append(m.Players, p.toDomain())
	}
	return m
}

func (d PlayerDTO) toDomain() domain.PlayerMatchResult {
	p := domain.PlayerMatchResult{
		PlayerID:  d.ID,
		BattleTag: d.BattleTag,
		Team:      d.Team,
		Race:      domain.Race(d.Race),
		Won:       d.Won,
		Country:   d.Country,
		MmrBefore: domain.Mmr(d.Mmr),
		MmrAfter:  domain.Mmr(d.UpdatedMmr),
		RankingAfter: domain.Ranking{
			Rp:          d.UpdatedRanking.Rp,
			Rank:        d.UpdatedRanking.Rank,
			LeagueID:    d.UpdatedRanking.LeagueID,
			LeagueOrder: d.UpdatedRanking.LeagueOrder,
		},
	}
	for _, fp := range d.FloPings {
		p.FloPings = append(p.FloPings, domain.FloPing(fp))
	}
	return p
}

func (d *FloNodeDTO) toDomain() *domain.FloNode {
	if d == nil {
		return nil
	}
	return &domain.FloNode{ID: d.ID, Name: d.Name, Location: d.Location, CountryID: d.CountryID}
}

func (d *ScoreDTO) toDomain() *domain.ScoreScreen {
	s := &domain.ScoreScreen{
		LocalPlayerWon: d.LocalPlayerWon,
		GameName:       d.GameName,
		GameID:         d.GameID,
		ElapsedSeconds: d.ElapsedSeconds,
	}
	for _, p := range d.Players {
		sp := domain.ScoreScreenPlayer{
			BattleTag: p.BattleTag,
			TeamIndex: p.TeamIndex,
			Won:       p.Won,
			IsAI:      p.IsAI,
		}
		for _, h := range p.Heroes {
			sp.Heroes = append(sp.Heroes, domain.Hero(h))
		}
		s.Players = append(s.Players, sp)
	}
	return s
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
