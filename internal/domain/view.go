package domain

// PlayerView is one player's appearance in a state snapshot. Hidden
// hands are arrays of nulls of the real length, so clients can render
// card counts without learning the cards.
type PlayerView struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Balance          int64   `json:"balance"`
	Hand             []*Card `json:"hand"`
	HasPlayedAnyCard bool    `json:"hasPlayedAnyCard"`
	IsBurned         bool    `json:"isBurned"`
	FinishedRank     int     `json:"finishedRank,omitempty"`
}

// StateView is the public snapshot handed to the transport layer for
// one viewer.
type StateView struct {
	Players        []PlayerView   `json:"players"`
	Bet            int64          `json:"bet"`
	Phase          Phase          `json:"phase"`
	CurrentTurnID  string         `json:"currentTurnId,omitempty"`
	LastMove       *Move          `json:"lastMove,omitempty"`
	Passed         []string       `json:"passed"`
	SpecialTurnFor string         `json:"specialTurnFor,omitempty"`
	History        []HistoryEntry `json:"history"`
}

// StateView renders the game for one viewer: the viewer's own hand in
// full, everyone else's masked until the round has finished.
func (g *Game) StateView(viewerID string) StateView {
	view := StateView{
		Bet:            g.Bet,
		Phase:          g.Phase,
		LastMove:       g.LastMove,
		SpecialTurnFor: g.SpecialTurnFor,
		Passed:         make([]string, 0, len(g.passed)),
		History:        g.history,
	}
	if g.Phase == PhasePlaying && g.CurrentTurn < len(g.Players) {
		view.CurrentTurnID = g.Players[g.CurrentTurn].ID
	}
	for _, p := range g.Players {
		if g.passed[p.ID] {
			view.Passed = append(view.Passed, p.ID)
		}
	}

	reveal := g.Phase == PhaseFinished
	for _, p := range g.Players {
		hand := make([]*Card, len(p.Hand))
		if reveal || p.ID == viewerID {
			for i := range p.Hand {
				c := p.Hand[i]
				hand[i] = &c
			}
		}
		view.Players = append(view.Players, PlayerView{
			ID:               p.ID,
			Name:             p.Name,
			Balance:          p.Balance,
			Hand:             hand,
			HasPlayedAnyCard: p.HasPlayedAnyCard,
			IsBurned:         p.IsBurned,
			FinishedRank:     p.FinishedRank,
		})
	}
	return view
}

// PersistentState is the slice of engine state the room layer persists
// across process restarts or game-instance recreation.
type PersistentState struct {
	IsFirstRound      bool           `json:"isFirstRound"`
	LastWasInstantWin bool           `json:"lastWasInstantWin"`
	StartingPlayerID  string         `json:"startingPlayerId,omitempty"`
	History           []HistoryEntry `json:"history,omitempty"`
}

// PersistableState exports the state carried between instances.
func (g *Game) PersistableState() PersistentState {
	return PersistentState{
		IsFirstRound:      g.isFirstRound,
		LastWasInstantWin: g.lastWasInstantWin,
		StartingPlayerID:  g.startingPlayerID,
		History:           g.history,
	}
}

// RestoreState reapplies previously persisted state to a fresh game.
func (g *Game) RestoreState(state PersistentState) {
	g.isFirstRound = state.IsFirstRound
	g.lastWasInstantWin = state.LastWasInstantWin
	g.startingPlayerID = state.StartingPlayerID
	g.history = state.History
}

// History returns finished-round snapshots, newest first.
func (g *Game) History() []HistoryEntry {
	return g.history
}
