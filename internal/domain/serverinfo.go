package domain

// PlayerServerInfo is the shared read-only projection over the player shapes
// of finished and unfinished matches.
type PlayerServerInfo struct {
	BattleTag string
	FloPings  []FloPing
}

// ServerInfo is the shared network view of a match, identical for both match
// shapes.
type ServerInfo struct {
	ServerProvider string
	FloNode        *FloNode
	Players        []PlayerServerInfo
}

// ServerInfo projects the network details of whichever match snapshot the
// event carries. Returns nil for events without a snapshot.
func (e *MatchEvent) ServerInfo() *ServerInfo {
	var (
		provider string
		node     *FloNode
		players  []PlayerMatchResult
	)
	switch {
	case e.Match != nil:
		provider, node, players = e.Match.ServerProvider, e.Match.FloNode, e.Match.Players
	case e.Unfinished != nil:
		provider, node, players = e.Unfinished.ServerProvider, e.Unfinished.FloNode, e.Unfinished.Players
	default:
		return nil
	}

	info := &ServerInfo{ServerProvider: provider, FloNode: node}
	for _, p := range players {
		info.Players = append(info.Players, PlayerServerInfo{BattleTag: p.BattleTag, FloPings: p.FloPings})
	}
	return info
}
