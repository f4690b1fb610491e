package repository

import (
	"encoding/json"
	"fmt"
	"time"
	"wc3stats/internal/domain"
)

// eventSchemaVersion is stored next to every payload so the wire schema can
// evolve without guessing at decode time.
const eventSchemaVersion = 1

// The payload types below are the persisted wire schema of match events,
// kept separate from the domain types so either side can change. Times are
// unix milliseconds, matching what the matchmaking service sends.

type matchPayloadV1 struct {
	MatchID        string            `json:"id"`
	State          int               `json:"state"`
	Season         int               `json:"season"`
	GameMode       int               `json:"gameMode"`
	Gateway        int               `json:"gateway"`
	Map            string            `json:"map"`
	MapName        string            `json:"mapName,omitempty"`
	Host           string            `json:"host,omitempty"`
	StartTime      int64             `json:"startTime"`
	EndTime        int64             `json:"endTime,omitempty"`
	Players        []playerPayloadV1 `json:"players"`
	ServerProvider string            `json:"serverProvider,omitempty"`
	FloNode        *floNodePayloadV1 `json:"floNode,omitempty"`
}

type playerPayloadV1 struct {
	PlayerID     string             `json:"id"`
	BattleTag    string             `json:"battleTag"`
	Team         int                `json:"team"`
	Race         int                `json:"race"`
	Won          bool               `json:"won"`
	Country      string             `json:"country,omitempty"`
	MmrBefore    mmrPayloadV1       `json:"mmr"`
	MmrAfter     mmrPayloadV1       `json:"updatedMmr"`
	RankingAfter rankingPayloadV1   `json:"updatedRanking"`
	FloPings     []floPingPayloadV1 `json:"floPings,omitempty"`
}

type mmrPayloadV1 struct {
	Rating           float64 `json:"rating"`
	Rd               float64 `json:"rd"`
	Vol              float64 `json:"vol"`
	RatingLowerBound float64 `json:"ratingLowerBound"`
}

type rankingPayloadV1 struct {
	Rp          float64 `json:"rp"`
	Rank        int     `json:"rank"`
	LeagueID    int     `json:"leagueId"`
	LeagueOrder int     `json:"leagueOrder"`
}

type floNodePayloadV1 struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	CountryID string `json:"countryId"`
}

type floPingPayloadV1 struct {
	NodeID      int `json:"nodeId"`
	CurrentPing int `json:"currentPing"`
	AvgPing     int `json:"avgPing"`
}

type scoreScreenPayloadV1 struct {
	LocalPlayerWon bool                         `json:"localPlayerWon"`
	GameName       string                       `json:"gameName,omitempty"`
	GameID         string                       `json:"gameId,omitempty"`
	Players        []scoreScreenPlayerPayloadV1 `json:"players,omitempty"`
	ElapsedSeconds int                          `json:"elapsedGameTimeTotalSeconds,omitempty"`
}

type scoreScreenPlayerPayloadV1 struct {
	BattleTag string          `json:"battleTag"`
	TeamIndex int             `json:"teamIndex"`
	Won       bool            `json:"won"`
	IsAI      bool            `json:"isAi"`
	Heroes    []heroPayloadV1 `json:"heroes,omitempty"`
}

type heroPayloadV1 struct {
	Icon  string `json:"icon"`
	Level int    `json:"level"`
}

type eventPayloadV1 struct {
	Match      *matchPayloadV1       `json:"match,omitempty"`
	Unfinished *matchPayloadV1       `json:"unfinishedMatch,omitempty"`
	Result     *scoreScreenPayloadV1 `json:"result,omitempty"`
}

func encodeEvent(ev domain.MatchEvent) ([]byte, error) {
	payload := eventPayloadV1{}
	if ev.Match != nil {
		payload.Match = matchToPayload(ev.Match)
	}
	if ev.Unfinished != nil {
		payload.Unfinished = unfinishedToPayload(ev.Unfinished)
	}
	if ev.Result != nil {
		payload.Result = scoreScreenToPayload(ev.Result)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event payload: %w", err)
	}
	return data, nil
}

func decodeEvent(version int, data []byte, ev *domain.MatchEvent) error {
	if version != eventSchemaVersion {
		return fmt.Errorf("unsupported event schema version %d", version)
	}

	var payload eventPayloadV1
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}

	if payload.Match != nil {
		ev.Match = matchFromPayload(payload.Match)
	}
	if payload.Unfinished != nil {
		ev.Unfinished = unfinishedFromPayload(payload.Unfinished)
	}
	if payload.Result != nil {
		ev.Result = scoreScreenFromPayload(payload.Result)
	}
	return nil
}

func matchToPayload(m *domain.Match) *matchPayloadV1 {
	p := &matchPayloadV1{
		MatchID:        m.MatchID,
		State:          int(m.State),
		Season:         m.Season,
		GameMode:       int(m.GameMode),
		Gateway:        int(m.Gateway),
		Map:            m.Map,
		MapName:        m.MapName,
		Host:           m.Host,
		StartTime:      timeToMs(m.StartTime),
		EndTime:        timeToMs(m.EndTime),
		ServerProvider: m.ServerProvider,
		FloNode:        floNodeToPayload(m.FloNode),
	}
	for _, pl := range m.Players {
		p.Players = append(p.Players, playerToPayload(pl))
	}
	return p
}

func unfinishedToPayload(m *domain.UnfinishedMatch) *matchPayloadV1 {
	p := &matchPayloadV1{
		MatchID:        m.MatchID,
		State:          int(m.State),
		Season:         m.Season,
		GameMode:       int(m.GameMode),
		Gateway:        int(m.Gateway),
		Map:            m.Map,
		MapName:        m.MapName,
		Host:           m.Host,
		StartTime:      timeToMs(m.StartTime),
		ServerProvider: m.ServerProvider,
		FloNode:        floNodeToPayload(m.FloNode),
	}
	for _, pl := range m.Players {
		p.Players = append(p.Players, playerToPayload(pl))
	}
	return p
}

func playerToPayload(pl domain.PlayerMatchResult) playerPayloadV1 {
	p := playerPayloadV1{
		PlayerID:  pl.PlayerID,
		BattleTag: pl.BattleTag,
		Team:      pl.Team,
		Race:      int(pl.Race),
		Won:       pl.Won,
		Country:   pl.Country,
		MmrBefore: mmrPayloadV1(pl.MmrBefore),
		MmrAfter:  mmrPayloadV1(pl.MmrAfter),
		RankingAfter: rankingPayloadV1{
			Rp:          pl.RankingAfter.Rp,
			Rank:        pl.RankingAfter.Rank,
			LeagueID:    pl.RankingAfter.LeagueID,
			LeagueOrder: pl.RankingAfter.LeagueOrder,
		},
	}
	for _, fp := range pl.FloPings {
		p.FloPings = append(p.FloPings, floPingPayloadV1(fp))
	}
	return p
}

func floNodeToPayload(n *domain.FloNode) *floNodePayloadV1 {
	if n == nil {
		return nil
	}
	return &floNodePayloadV1{ID: n.ID, Name: n.Name, Location: n.Location, CountryID: n.CountryID}
}

func scoreScreenToPayload(s *domain.ScoreScreen) *scoreScreenPayloadV1 {
	p := &scoreScreenPayloadV1{
		LocalPlayerWon: s.LocalPlayerWon,
		GameName:       s.GameName,
		GameID:         s.GameID,
		ElapsedSeconds: s.ElapsedSeconds,
	}
	for _, pl := range s.Players {
		sp := scoreScreenPlayerPayloadV1{
			BattleTag: pl.BattleTag,
			TeamIndex: pl.TeamIndex,
			Won:       pl.Won,
			IsAI:      pl.IsAI,
		}
		for _, h := range pl.Heroes {
			sp.Heroes = append(sp.Heroes, heroPayloadV1(h))
		}
		p.Players = append(p.Players, sp)
	}
	return p
}

func matchFromPayload(p *matchPayloadV1) *domain.Match {
	m := &domain.Match{
		MatchID:        p.MatchID,
		State:          domain.MatchState(p.State),
		Season:         p.Season,
		GameMode:       domain.GameMode(p.GameMode),
		Gateway:        domain.Gateway(p.Gateway),
		Map:            p.Map,
		MapName:        p.MapName,
		Host:           p.Host,
		StartTime:      msToTime(p.StartTime),
		EndTime:        msToTime(p.EndTime),
		ServerProvider: p.ServerProvider,
		FloNode:        floNodeFromPayload(p.FloNode),
	}
	for _, pl := range p.Players {
		m.Players = append(m.Players, playerFromPayload(pl))
	}
	return m
}

func unfinishedFromPayload(p *matchPayloadV1) *domain.UnfinishedMatch {
	m := &domain.UnfinishedMatch{
		MatchID:        p.MatchID,
		State:          domain.MatchState(p.State),
		Season:         p.Season,
		GameMode:       domain.GameMode(p.GameMode),
		Gateway:        domain.Gateway(p.Gateway),
		Map:            p.Map,
		MapName:        p.MapName,
		Host:           p.Host,
		StartTime:      msToTime(p.StartTime),
		ServerProvider: p.ServerProvider,
		FloNode:        floNodeFromPayload(p.FloNode),
	}
	for _, pl := range p.Players {
		m.Players = append(m.Players, playerFromPayload(pl))
	}
	return m
}

func playerFromPayload(p playerPayloadV1) domain.PlayerMatchResult {
	pl := domain.PlayerMatchResult{
		PlayerID:  p.PlayerID,
		BattleTag: p.BattleTag,
		Team:      p.Team,
		Race:      domain.Race(p.Race),
		Won:       p.Won,
		Country:   p.Country,
		MmrBefore: domain.Mmr(p.MmrBefore),
		MmrAfter:  domain.Mmr(p.MmrAfter),
		RankingAfter: domain.Ranking{
			Rp:          p.RankingAfter.Rp,
			Rank:        p.RankingAfter.Rank,
			LeagueID:    p.RankingAfter.LeagueID,
			LeagueOrder: p.RankingAfter.LeagueOrder,
		},
	}
	for _, fp := range p.FloPings {
		pl.FloPings = append(pl.FloPings, domain.FloPing(fp))
	}
	return pl
}

func floNodeFromPayload(p *floNodePayloadV1) *domain.FloNode {
	if p == nil {
		return nil
	}
	return &domain.FloNode{ID: p.ID, Name: p.Name, Location: p.Location, CountryID: p.CountryID}
}

func scoreScreenFromPayload(p *scoreScreenPayloadV1) *domain.ScoreScreen {
	s := &domain.ScoreScreen{
		LocalPlayerWon: p.LocalPlayerWon,
		GameName:       p.GameName,
		GameID:         p.GameID,
		ElapsedSeconds: p.ElapsedSeconds,
	}
	for _, pl := range p.Players {
		sp := domain.ScoreScreenPlayer{
			BattleTag: pl.BattleTag,
			TeamIndex: pl.TeamIndex,
			Won:       pl.Won,
			IsAI:      pl.IsAI,
		}
		for _, h := range pl.Heroes {
			sp.Heroes = append(sp.Heroes, domain.Hero(h))
		}
		s.Players = append(s.Players, sp)
	}
	return s
}

func timeToMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
