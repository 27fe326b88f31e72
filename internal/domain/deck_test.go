package domain

import (
	"errors"
	"math/rand"
	"testing"
)

func TestDealIntegrity(t *testing.T) {
	for _, count := range []int{2, 3, 4} {
		ids := make([]string, count)
		for i := range ids {
			ids[i] = "p" + string(rune('0'+i))
		}

		rng := rand.New(rand.NewSource(int64(count)))
		dealt, err := Deal(rng, ids)
		if err != nil {
			t.Fatalf("deal with %d players: %v", count, err)
		}

		seen := map[string]bool{}
		total := 0
		for _, dh := range dealt {
			if len(dh.Cards) != HandSize {
				t.Errorf("%d players: player %s got %d cards", count, dh.PlayerID, len(dh.Cards))
			}
			for _, c := range dh.Cards {
				if seen[c.ID] {
					t.Errorf("%d players: duplicate card %s", count, c.ID)
				}
				seen[c.ID] = true
				total++
			}
		}
		if total != count*HandSize {
			t.Errorf("%d players: expected %d cards, got %d", count, count*HandSize, total)
		}
	}
}

func TestDealRejectsBadPlayerCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, ids := range [][]string{nil, {"a"}, {"a", "b", "c", "d", "e"}} {
		if _, err := Deal(rng, ids); !errors.Is(err, ErrInvalidPlayerCount) {
			t.Errorf("deal with %d players: expected ErrInvalidPlayerCount, got %v", len(ids), err)
		}
	}
}

func TestNewDeckHas52UniqueCards(t *testing.T) {
	deck := NewDeck()
	if len(deck) != DeckSize {
		t.Fatalf("expected %d cards, got %d", DeckSize, len(deck))
	}
	seen := map[string]bool{}
	for _, c := range deck {
		if seen[c.ID] {
			t.Errorf("duplicate card id %s", c.ID)
		}
		seen[c.ID] = true
		if c.Rank < RankLowest || c.Rank > RankPig {
			t.Errorf("card %s has rank out of range", c.ID)
		}
	}
}
