package app

import (
	"math/rand"
	"testing"

	"tienlen/internal/domain"
)

func testSeats(ids ...string) []domain.PlayerSeat {
	seats := make([]domain.PlayerSeat, len(ids))
	for i, id := range ids {
		seats[i] = domain.PlayerSeat{ID: id, Name: id, Balance: 10000}
	}
	return seats
}

// playingTable builds a table mid-round with fixed hands, seat 0 on turn.
func playingTable(svc *Service, hands map[string][]domain.Card, order ...string) *domain.Game {
	game := svc.NewTable(testSeats(order...), 100)
	game.Phase = domain.PhasePlaying
	for _, p := range game.Players {
		p.Hand = domain.SortedCards(hands[p.ID])
	}
	return game
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func hasKind(events []Event, kind EventKind) bool {
	for _, ev := range events {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

func TestStartRoundEmitsHandsAndStart(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(7)))
	game := svc.NewTable(testSeats("a", "b", "c"), 100)

	events, err := svc.StartRound(game)
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}

	dealt := 0
	for _, ev := range events {
		if ev.Kind != EventHandDealt {
			continue
		}
		dealt++
		payload := ev.Payload.(HandDealtPayload)
		if len(ev.Recipients) != 1 || ev.Recipients[0] != payload.UserID {
			t.Errorf("hand for %s must go only to its owner, recipients %v", payload.UserID, ev.Recipients)
		}
		if len(payload.Hand) != domain.HandSize {
			t.Errorf("hand for %s has %d cards", payload.UserID, len(payload.Hand))
		}
	}
	if dealt != 3 {
		t.Fatalf("expected 3 hand events, got %d", dealt)
	}

	if game.Phase == domain.PhaseFinished {
		// Dealt instant win: settlement events replace the start event.
		if !hasKind(events, EventRoundEnded) {
			t.Fatalf("instant win must carry a round-ended event, got %v", kinds(events))
		}
		return
	}
	if !hasKind(events, EventRoundStarted) {
		t.Fatalf("missing round-started event, got %v", kinds(events))
	}
}

func TestStartRoundRejectsBrokePlayer(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	seats := testSeats("a", "b")
	seats[1].Balance = 10
	game := svc.NewTable(seats, 100)

	if _, err := svc.StartRound(game); err == nil {
		t.Fatal("expected error for balance below bet")
	}
}

func TestSetBetClampsToCeiling(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	game := svc.NewTable(testSeats("a", "b"), 100)

	events, err := svc.SetBet(game, 5000, 1000)
	if err != nil {
		t.Fatalf("SetBet: %v", err)
	}
	if game.Bet != 1000 {
		t.Errorf("bet = %d, want clamped 1000", game.Bet)
	}
	if len(events) != 1 || events[0].Kind != EventBetChanged {
		t.Fatalf("expected one bet-changed event, got %v", kinds(events))
	}
	if got := events[0].Payload.(BetChangedPayload).Bet; got != 1000 {
		t.Errorf("payload bet = %d, want 1000", got)
	}
}

func TestPlayMoveEmitsMoveAndTurn(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	game := playingTable(svc, map[string][]domain.Card{
		"a": {domain.NewCard(5, domain.SuitSpade), domain.NewCard(9, domain.SuitHeart)},
		"b": {domain.NewCard(6, domain.SuitSpade), domain.NewCard(10, domain.SuitClub)},
	}, "a", "b")

	events, err := svc.PlayMove(game, "a", []string{domain.NewCard(5, domain.SuitSpade).ID})
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if events[0].Kind != EventMovePlayed {
		t.Fatalf("first event %s, want move_played", events[0].Kind)
	}
	payload := events[0].Payload.(MovePlayedPayload)
	if payload.UserID != "a" || payload.NextTurnUserID != "b" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Move.Shape != domain.ShapeSingle {
		t.Errorf("shape = %s, want single", payload.Move.Shape)
	}
}

func TestPlayMoveEmitsChop(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	pig := domain.NewCard(15, domain.SuitHeart)
	quadCards := []domain.Card{
		domain.NewCard(7, domain.SuitSpade), domain.NewCard(7, domain.SuitClub),
		domain.NewCard(7, domain.SuitDiamond), domain.NewCard(7, domain.SuitHeart),
	}
	game := playingTable(svc, map[string][]domain.Card{
		"a": {pig, domain.NewCard(3, domain.SuitSpade)},
		"b": append(append([]domain.Card{}, quadCards...), domain.NewCard(4, domain.SuitSpade)),
	}, "a", "b")

	if _, err := svc.PlayMove(game, "a", []string{pig.ID}); err != nil {
		t.Fatalf("pig lead: %v", err)
	}

	ids := make([]string, len(quadCards))
	for i, c := range quadCards {
		ids[i] = c.ID
	}
	events, err := svc.PlayMove(game, "b", ids)
	if err != nil {
		t.Fatalf("quad chop: %v", err)
	}
	if !hasKind(events, EventChop) {
		t.Fatalf("expected a chop event, got %v", kinds(events))
	}
	for _, ev := range events {
		if ev.Kind == EventChop {
			info := ev.Payload.(ChopPayload).Info
			if info.AttackerID != "b" || info.VictimID != "a" || info.Amount != 100 {
				t.Errorf("chop info = %+v", info)
			}
		}
	}
}

func TestPassTurnEmitsResetWhenTrickResolves(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	game := playingTable(svc, map[string][]domain.Card{
		"a": {domain.NewCard(5, domain.SuitSpade), domain.NewCard(9, domain.SuitHeart)},
		"b": {domain.NewCard(6, domain.SuitSpade), domain.NewCard(10, domain.SuitClub)},
	}, "a", "b")

	// Pass without a standing move emits nothing.
	if events := svc.PassTurn(game, "a"); events != nil {
		t.Fatalf("expected no events, got %v", kinds(events))
	}

	if _, err := svc.PlayMove(game, "a", []string{domain.NewCard(5, domain.SuitSpade).ID}); err != nil {
		t.Fatalf("lead: %v", err)
	}

	events := svc.PassTurn(game, "b")
	if len(events) != 2 || events[0].Kind != EventTurnPassed || events[1].Kind != EventTrickReset {
		t.Fatalf("expected turn_passed + trick_reset, got %v", kinds(events))
	}
	if got := events[1].Payload.(TrickResetPayload).LeaderUserID; got != "a" {
		t.Errorf("new leader = %s, want a", got)
	}
}

func TestLeaveEmitsPlayerLeft(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	game := svc.NewTable(testSeats("a", "b", "c"), 100)

	events := svc.Leave(game, "b")
	if len(events) != 1 || events[0].Kind != EventPlayerLeft {
		t.Fatalf("expected one player-left event, got %v", kinds(events))
	}
	if len(game.Players) != 2 {
		t.Errorf("expected 2 players left, got %d", len(game.Players))
	}
}

func TestStateEventsAreTargeted(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	game := playingTable(svc, map[string][]domain.Card{
		"a": {domain.NewCard(5, domain.SuitSpade)},
		"b": {domain.NewCard(6, domain.SuitSpade)},
	}, "a", "b")

	events := svc.StateEvents(game)
	if len(events) != 2 {
		t.Fatalf("expected one state event per player, got %d", len(events))
	}
	for _, ev := range events {
		if len(ev.Recipients) != 1 {
			t.Fatalf("state events must target one player, got %v", ev.Recipients)
		}
	}
}
