package bot

import (
	"math/rand"
	"testing"

	"tienlen/internal/domain"
)

func botGame(hands map[string][]domain.Card, order ...string) *domain.Game {
	seats := make([]domain.PlayerSeat, len(order))
	for i, id := range order {
		seats[i] = domain.PlayerSeat{ID: id, Name: id, Balance: 10000}
	}
	g := domain.NewGame(seats, 100, rand.New(rand.NewSource(1)))
	g.Phase = domain.PhasePlaying
	for _, p := range g.Players {
		p.Hand = domain.SortedCards(hands[p.ID])
	}
	return g
}

func play(t *testing.T, g *domain.Game, playerID string, cards ...domain.Card) {
	t.Helper()
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	if _, err := g.PlayMove(playerID, ids); err != nil {
		t.Fatalf("setup move for %s: %v", playerID, err)
	}
}

func botMove(t *testing.T, g *domain.Game, botID string) Move {
	t.Helper()
	agent := &Agent{ID: botID, Name: botID, Strategy: &LowestLegalBot{}}
	move, err := agent.Play(g)
	if err != nil {
		t.Fatalf("bot move: %v", err)
	}
	return move
}

func assertLegal(t *testing.T, g *domain.Game, botID string, move Move) {
	t.Helper()
	if move.Pass {
		return
	}
	ids := make([]string, len(move.Cards))
	for i, c := range move.Cards {
		ids[i] = c.ID
	}
	if _, err := g.PlayMove(botID, ids); err != nil {
		t.Fatalf("bot produced an illegal move %v: %v", ids, err)
	}
}

func TestBotLeadsLowestSingle(t *testing.T) {
	g := botGame(map[string][]domain.Card{
		"bot":   {domain.NewCard(10, domain.SuitHeart), domain.NewCard(4, domain.SuitClub), domain.NewCard(7, domain.SuitSpade)},
		"human": {domain.NewCard(5, domain.SuitSpade)},
	}, "bot", "human")

	move := botMove(t, g, "bot")
	if move.Pass || len(move.Cards) != 1 {
		t.Fatalf("expected a single lead, got %+v", move)
	}
	if move.Cards[0].Rank != 4 {
		t.Errorf("lead rank = %d, want lowest 4", move.Cards[0].Rank)
	}
	assertLegal(t, g, "bot", move)
}

func TestBotBeatsSingleWithCheapestWinner(t *testing.T) {
	lead := domain.NewCard(8, domain.SuitHeart)
	g := botGame(map[string][]domain.Card{
		"human": {lead, domain.NewCard(3, domain.SuitSpade)},
		"bot":   {domain.NewCard(6, domain.SuitSpade), domain.NewCard(9, domain.SuitClub), domain.NewCard(13, domain.SuitHeart)},
	}, "human", "bot")
	play(t, g, "human", lead)

	move := botMove(t, g, "bot")
	if move.Pass {
		t.Fatal("bot holds a winner and must not pass")
	}
	if move.Cards[0].Rank != 9 {
		t.Errorf("answer rank = %d, want cheapest winner 9", move.Cards[0].Rank)
	}
	assertLegal(t, g, "bot", move)
}

func TestBotPassesWhenNothingBeats(t *testing.T) {
	lead := domain.NewCard(14, domain.SuitHeart)
	g := botGame(map[string][]domain.Card{
		"human": {lead, domain.NewCard(3, domain.SuitSpade)},
		"bot":   {domain.NewCard(6, domain.SuitSpade), domain.NewCard(9, domain.SuitClub)},
	}, "human", "bot")
	play(t, g, "human", lead)

	if move := botMove(t, g, "bot"); !move.Pass {
		t.Fatalf("expected a pass, got %+v", move)
	}
}

func TestBotAnswersPairWithPair(t *testing.T) {
	g := botGame(map[string][]domain.Card{
		"human": {domain.NewCard(7, domain.SuitSpade), domain.NewCard(7, domain.SuitClub), domain.NewCard(3, domain.SuitSpade)},
		"bot": {
			domain.NewCard(9, domain.SuitSpade), domain.NewCard(9, domain.SuitDiamond),
			domain.NewCard(12, domain.SuitClub), domain.NewCard(12, domain.SuitHeart),
			domain.NewCard(14, domain.SuitSpade),
		},
	}, "human", "bot")
	play(t, g, "human", domain.NewCard(7, domain.SuitSpade), domain.NewCard(7, domain.SuitClub))

	move := botMove(t, g, "bot")
	if move.Pass || len(move.Cards) != 2 {
		t.Fatalf("expected a pair answer, got %+v", move)
	}
	if move.Cards[0].Rank != 9 {
		t.Errorf("pair rank = %d, want cheapest 9", move.Cards[0].Rank)
	}
	assertLegal(t, g, "bot", move)
}

func TestBotChopsPigWithQuad(t *testing.T) {
	pig := domain.NewCard(15, domain.SuitHeart)
	g := botGame(map[string][]domain.Card{
		"human": {pig, domain.NewCard(3, domain.SuitSpade)},
		"bot": {
			domain.NewCard(6, domain.SuitSpade), domain.NewCard(6, domain.SuitClub),
			domain.NewCard(6, domain.SuitDiamond), domain.NewCard(6, domain.SuitHeart),
			domain.NewCard(4, domain.SuitSpade),
		},
	}, "human", "bot")
	play(t, g, "human", pig)

	move := botMove(t, g, "bot")
	if move.Pass || len(move.Cards) != 4 {
		t.Fatalf("expected a quad chop, got %+v", move)
	}
	assertLegal(t, g, "bot", move)
}

func TestBotPrefersPlainAnswerOverBomb(t *testing.T) {
	lead := domain.NewCard(8, domain.SuitHeart)
	g := botGame(map[string][]domain.Card{
		"human": {lead, domain.NewCard(3, domain.SuitSpade)},
		"bot": {
			domain.NewCard(10, domain.SuitSpade),
			domain.NewCard(6, domain.SuitSpade), domain.NewCard(6, domain.SuitClub),
			domain.NewCard(6, domain.SuitDiamond), domain.NewCard(6, domain.SuitHeart),
		},
	}, "human", "bot")
	play(t, g, "human", lead)

	move := botMove(t, g, "bot")
	if move.Pass || len(move.Cards) != 1 {
		t.Fatalf("expected the plain single, got %+v", move)
	}
	if move.Cards[0].Rank != 10 {
		t.Errorf("answer rank = %d, want 10 over breaking the quad", move.Cards[0].Rank)
	}
	assertLegal(t, g, "bot", move)
}

func TestAgentNotSeatedPasses(t *testing.T) {
	g := botGame(map[string][]domain.Card{
		"a": {domain.NewCard(5, domain.SuitSpade)},
		"b": {domain.NewCard(6, domain.SuitSpade)},
	}, "a", "b")

	if move := botMove(t, g, "stranger"); !move.Pass {
		t.Fatalf("unseated agent must pass, got %+v", move)
	}
}
