package app

import (
	"math/rand"
	"time"

	"tienlen/internal/domain"
)

// Service contains the table use-cases operating on domain state. It is
// stateless apart from its rng; callers hold one *domain.Game per table
// and serialize access to it.
type Service struct {
	rng *rand.Rand
}

// NewService constructs a Service with the provided rng or a time-seeded
// default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng}
}

// NewTable builds a fresh table in the waiting phase. Each table gets
// its own rng stream so concurrent tables never contend on one source.
func (s *Service) NewTable(seats []domain.PlayerSeat, bet int64) *domain.Game {
	return domain.NewGame(seats, bet, rand.New(rand.NewSource(s.rng.Int63())))
}

// SetBet changes the table bet between rounds, clamping to the given
// ceiling rather than rejecting over-asks.
func (s *Service) SetBet(game *domain.Game, amount, ceiling int64) ([]Event, error) {
	if ceiling > 0 && amount > ceiling {
		amount = ceiling
	}
	if err := game.SetBet(amount); err != nil {
		return nil, err
	}
	return []Event{{
		Kind:    EventBetChanged,
		Payload: BetChangedPayload{Bet: game.Bet},
	}}, nil
}

// StartRound deals a new round and emits the per-player hands plus the
// round-start broadcast. A dealt instant win ends the round immediately
// and the settlement events follow in the same batch.
func (s *Service) StartRound(game *domain.Game) ([]Event, error) {
	if err := game.StartRound(); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(game.Players)+2)
	for _, p := range game.Players {
		events = append(events, Event{
			Kind: EventHandDealt,
			Payload: HandDealtPayload{
				UserID: p.ID,
				Hand:   p.Hand,
			},
			Recipients: []string{p.ID},
		})
	}

	if game.Phase == domain.PhaseFinished {
		return append(events, s.instantWinEvents(game)...), nil
	}

	events = append(events, Event{
		Kind: EventRoundStarted,
		Payload: RoundStartedPayload{
			Bet:             game.Bet,
			FirstTurnUserID: game.Players[game.CurrentTurn].ID,
			OpeningForced:   game.OpeningPending(),
		},
	})
	return events, nil
}

// PlayMove applies a play and converts its result into events.
func (s *Service) PlayMove(game *domain.Game, userID string, cardIDs []string) ([]Event, error) {
	res, err := game.PlayMove(userID, cardIDs)
	if err != nil {
		return nil, err
	}

	events := []Event{{
		Kind: EventMovePlayed,
		Payload: MovePlayedPayload{
			UserID:         userID,
			Move:           res.Move,
			NextTurnUserID: res.NextTurnID,
		},
	}}
	if res.Chop != nil {
		events = append(events, Event{
			Kind:    EventChop,
			Payload: ChopPayload{Info: *res.Chop},
		})
	}
	if game.SpecialTurnFor != "" {
		events = append(events, Event{
			Kind:       EventSpecialTurn,
			Payload:    SpecialTurnPayload{UserID: game.SpecialTurnFor},
			Recipients: []string{game.SpecialTurnFor},
		})
	}
	if res.TrickReset && !res.RoundEnded {
		events = append(events, Event{
			Kind:    EventTrickReset,
			Payload: TrickResetPayload{LeaderUserID: res.NextTurnID},
		})
	}
	if res.RoundEnded {
		events = append(events, s.roundEndedEvents(game)...)
	}
	return events, nil
}

// PassTurn records a pass. Illegal passes are silent no-ops and emit
// nothing.
func (s *Service) PassTurn(game *domain.Game, userID string) []Event {
	hadMove := game.LastMove != nil
	onTurn := game.Phase == domain.PhasePlaying && game.Players[game.CurrentTurn].ID == userID
	game.PassTurn(userID)
	if !hadMove || !onTurn {
		return nil
	}

	events := []Event{{
		Kind: EventTurnPassed,
		Payload: TurnPassedPayload{
			UserID:         userID,
			NextTurnUserID: game.Players[game.CurrentTurn].ID,
		},
	}}
	if game.LastMove == nil {
		events = append(events, Event{
			Kind:    EventTrickReset,
			Payload: TrickResetPayload{LeaderUserID: game.Players[game.CurrentTurn].ID},
		})
	}
	return events
}

// DeclineSpecialTurn gives up the four-consecutive-pairs interrupt slot.
func (s *Service) DeclineSpecialTurn(game *domain.Game, userID string) {
	game.DeclineSpecialTurn(userID)
}

// Leave removes a player from the table mid-session.
func (s *Service) Leave(game *domain.Game, userID string) []Event {
	game.RemovePlayer(userID)
	return []Event{{
		Kind:    EventPlayerLeft,
		Payload: PlayerLeftPayload{UserID: userID},
	}}
}

// StateEvents emits one masked state snapshot per seated player.
func (s *Service) StateEvents(game *domain.Game) []Event {
	events := make([]Event, 0, len(game.Players))
	for _, p := range game.Players {
		events = append(events, Event{
			Kind:       EventState,
			Payload:    StatePayload{State: game.StateView(p.ID)},
			Recipients: []string{p.ID},
		})
	}
	return events
}

// instantWinEvents emits the instant-win announcement and the round-end
// settlement derived from the freshly recorded history entry.
func (s *Service) instantWinEvents(game *domain.Game) []Event {
	events := make([]Event, 0, 2)
	if len(game.History()) > 0 {
		for _, ev := range game.History()[0].Events {
			if ev.Kind == domain.EventInstantWin {
				events = append(events, Event{
					Kind: EventInstantWin,
					Payload: InstantWinPayload{
						UserID: ev.PlayerID,
						Reason: domain.InstantWinReason(ev.Detail),
					},
				})
			}
		}
	}
	return append(events, s.roundEndedEvents(game)...)
}

func (s *Service) roundEndedEvents(game *domain.Game) []Event {
	ranks := make(map[string]int, len(game.Players))
	changes := make(map[string]int64, len(game.Players))
	for _, p := range game.Players {
		ranks[p.ID] = p.FinishedRank
	}
	if len(game.History()) > 0 {
		for _, rec := range game.History()[0].Players {
			changes[rec.ID] = rec.Change
		}
	}
	return []Event{{
		Kind:    EventRoundEnded,
		Payload: RoundEndedPayload{Ranks: ranks, Changes: changes},
	}}
}
