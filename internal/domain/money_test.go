package domain

import "testing"

const bet = int64(100)

func settledPlayers(count int, burnedRanks ...int) []SettledPlayer {
	burned := map[int]bool{}
	for _, r := range burnedRanks {
		burned[r] = true
	}
	players := make([]SettledPlayer, count)
	for i := 0; i < count; i++ {
		rank := i + 1
		players[i] = SettledPlayer{
			ID:     "p" + string(rune('0'+rank)),
			Rank:   rank,
			Burned: burned[rank],
		}
	}
	return players
}

func changesByPlayer(payouts []Payout) map[string]int64 {
	out := map[string]int64{}
	for _, p := range payouts {
		out[p.PlayerID] += p.Change
	}
	return out
}

func TestSettleRound(t *testing.T) {
	tests := []struct {
		name     string
		players  []SettledPlayer
		expected map[string]int64
	}{
		{
			name:     "two players",
			players:  settledPlayers(2),
			expected: map[string]int64{"p1": bet, "p2": -bet},
		},
		{
			name:     "three players",
			players:  settledPlayers(3),
			expected: map[string]int64{"p1": bet, "p2": 0, "p3": -bet},
		},
		{
			name:     "four players",
			players:  settledPlayers(4),
			expected: map[string]int64{"p1": bet, "p2": bet / 2, "p3": -bet / 2, "p4": -bet},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payouts := SettleRound(tt.players, bet)
			if err := VerifyZeroSum(payouts); err != nil {
				t.Fatalf("zero-sum: %v", err)
			}
			got := changesByPlayer(payouts)
			for id, want := range tt.expected {
				if got[id] != want {
					t.Errorf("player %s: expected %d, got %d", id, want, got[id])
				}
			}
		})
	}
}

func TestSettleRoundStaleTransfer(t *testing.T) {
	// Loser keeps a red pig, a black pig and a leftover quad.
	loserHand := []Card{
		NewCard(15, SuitHeart), NewCard(15, SuitSpade),
		NewCard(8, SuitSpade), NewCard(8, SuitClub), NewCard(8, SuitDiamond), NewCard(8, SuitHeart),
	}
	staleTotal := bet + bet/2 + bet*2 // red pig + black pig + quad

	tests := []struct {
		name     string
		count    int
		receiver string
	}{
		{"two player table pays the winner", 2, "p1"},
		{"three player table pays rank 2", 3, "p2"},
		{"four player table pays rank 3", 4, "p3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			players := settledPlayers(tt.count)
			players[tt.count-1].Hand = loserHand

			payouts := SettleRound(players, bet)
			if err := VerifyZeroSum(payouts); err != nil {
				t.Fatalf("zero-sum: %v", err)
			}

			got := changesByPlayer(payouts)
			loser := players[tt.count-1].ID
			baseLoss := -bet
			if got[loser] != baseLoss-staleTotal {
				t.Errorf("loser %s: expected %d, got %d", loser, baseLoss-staleTotal, got[loser])
			}

			receiverBase := map[int]int64{2: bet, 3: 0, 4: -bet / 2}[tt.count]
			if got[tt.receiver] != receiverBase+staleTotal {
				t.Errorf("receiver %s: expected %d, got %d", tt.receiver, receiverBase+staleTotal, got[tt.receiver])
			}
		})
	}
}

func TestSettleBurn(t *testing.T) {
	tests := []struct {
		name     string
		players  []SettledPlayer
		expected map[string]int64
	}{
		{
			name:     "two players one burned",
			players:  settledPlayers(2, 2),
			expected: map[string]int64{"p1": 2 * bet, "p2": -2 * bet},
		},
		{
			name:     "three players one burned",
			players:  settledPlayers(3, 3),
			expected: map[string]int64{"p1": 2 * bet, "p2": 0, "p3": -2 * bet},
		},
		{
			name:     "four players one burned",
			players:  settledPlayers(4, 4),
			expected: map[string]int64{"p1": 2 * bet, "p2": bet / 2, "p3": -bet / 2, "p4": -2 * bet},
		},
		{
			name:     "four players two burned",
			players:  settledPlayers(4, 3, 4),
			expected: map[string]int64{"p1": 4 * bet, "p2": 0, "p3": -2 * bet, "p4": -2 * bet},
		},
		{
			name:     "four players three burned",
			players:  settledPlayers(4, 2, 3, 4),
			expected: map[string]int64{"p1": 6 * bet, "p2": -2 * bet, "p3": -2 * bet, "p4": -2 * bet},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payouts := SettleBurn(tt.players, bet)
			if err := VerifyZeroSum(payouts); err != nil {
				t.Fatalf("zero-sum: %v", err)
			}
			got := changesByPlayer(payouts)
			for id, want := range tt.expected {
				if got[id] != want {
					t.Errorf("player %s: expected %d, got %d", id, want, got[id])
				}
			}
		})
	}
}

func TestSettleBurnCollectsStaleFromBurnedHands(t *testing.T) {
	players := settledPlayers(2, 2)
	players[1].Hand = []Card{NewCard(15, SuitDiamond)} // red pig

	payouts := SettleBurn(players, bet)
	if err := VerifyZeroSum(payouts); err != nil {
		t.Fatalf("zero-sum: %v", err)
	}
	got := changesByPlayer(payouts)
	if got["p2"] != -2*bet-bet {
		t.Errorf("burned player: expected %d, got %d", -2*bet-bet, got["p2"])
	}
	if got["p1"] != 2*bet+bet {
		t.Errorf("winner: expected %d, got %d", 2*bet+bet, got["p1"])
	}
}

func TestSettleInstantWin(t *testing.T) {
	for _, count := range []int{2, 3, 4} {
		ids := make([]string, count)
		for i := range ids {
			ids[i] = "p" + string(rune('1'+i))
		}
		payouts := SettleInstantWin("p1", ids, bet)
		if err := VerifyZeroSum(payouts); err != nil {
			t.Fatalf("%d players zero-sum: %v", count, err)
		}
		got := changesByPlayer(payouts)
		if got["p1"] != 2*bet*int64(count-1) {
			t.Errorf("%d players: winner expected %d, got %d", count, 2*bet*int64(count-1), got["p1"])
		}
		for _, id := range ids[1:] {
			if got[id] != -2*bet {
				t.Errorf("%d players: %s expected %d, got %d", count, id, -2*bet, got[id])
			}
		}
	}
}

func TestStaleValue(t *testing.T) {
	tests := []struct {
		name     string
		hand     []Card
		expected int64
	}{
		{"empty hand", nil, 0},
		{"red pig", []Card{NewCard(15, SuitHeart)}, bet},
		{"black pig", []Card{NewCard(15, SuitClub)}, bet / 2},
		{
			"three consecutive pairs",
			threePairs(5),
			bet + bet/2,
		},
		{
			"four of a kind",
			quad(9),
			2 * bet,
		},
		{
			"everything stacks",
			append(append(quad(9), threePairs(4)...), NewCard(15, SuitHeart)),
			2*bet + bet + bet/2 + bet,
		},
		{"no stale shapes", []Card{NewCard(5, SuitSpade), NewCard(9, SuitHeart)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StaleValue(tt.hand, bet); got.Total != tt.expected {
				t.Errorf("expected %d, got %d (details %v)", tt.expected, got.Total, got.Details)
			}
		})
	}
}

func TestChopValue(t *testing.T) {
	tests := []struct {
		name     string
		shape    HandShape
		cards    []Card
		expected int64
	}{
		{"red pig single", ShapeSingle, []Card{NewCard(15, SuitHeart)}, bet},
		{"black pig single", ShapeSingle, []Card{NewCard(15, SuitSpade)}, bet / 2},
		{"mixed pig pair", ShapePair, []Card{NewCard(15, SuitHeart), NewCard(15, SuitClub)}, bet + bet/2},
		{"three consecutive pairs", ShapeThreeConsecutivePairs, threePairs(4), bet + bet/2},
		{"four of a kind", ShapeFourOfAKind, quad(7), 2 * bet},
		{"four consecutive pairs", ShapeFourConsecutivePairs, fourPairs(4), 4 * bet},
		{"plain single has no chop value", ShapeSingle, []Card{NewCard(14, SuitHeart)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChopValue(tt.shape, tt.cards, bet); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
