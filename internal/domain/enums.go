package domain

// MatchState mirrors the matchmaking service's match lifecycle.
type MatchState int

const (
	StateInit     MatchState = 0
	StateStarted  MatchState = 1
	StateFinished MatchState = 2
	StateCanceled MatchState = 3
)

type EventKind int

const (
	EventStarted EventKind = iota + 1
	EventFinished
	EventCanceled
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventFinished:
		return "finished"
	case EventCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Race values match the game client's race identifiers.
type Race int

const (
	RaceRandom   Race = 0
	RaceHuman    Race = 1
	RaceOrc      Race = 2
	RaceNightElf Race = 4
	RaceUndead   Race = 8
)

func (r Race) String() string {
	switch r {
	case RaceRandom:
		return "RnD"
	case RaceHuman:
		return "HU"
	case RaceOrc:
		return "OC"
	case RaceNightElf:
		return "NE"
	case RaceUndead:
		return "UD"
	default:
		return "unknown"
	}
}

// Gateway is the region cluster a match was played on.
type Gateway int

const (
	GatewayUndefined Gateway = 0
	GatewayAmerica   Gateway = 10
	GatewayEurope    Gateway = 20
	GatewayAsia      Gateway = 30
)

type GameMode int

const (
	GameModeUndefined GameMode = 0
	GameMode1v1       GameMode = 1
	GameMode2v2       GameMode = 2
	GameMode4v4       GameMode = 4
	GameModeFFA       GameMode = 5
)
