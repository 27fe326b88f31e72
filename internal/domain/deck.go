package domain

import (
	"errors"
	"fmt"
	"math/rand"
)

// DeckSize is 13 ranks across 4 suits.
const DeckSize = 52

// HandSize is the number of cards dealt to each player.
const HandSize = 13

var (
	// ErrInvalidPlayerCount rejects deals outside the 2..4 player range.
	ErrInvalidPlayerCount = errors.New("deal requires between 2 and 4 players")
	// ErrDeckIntegrity marks a corrupted deal: wrong totals or duplicate
	// cards. It is fatal; no round may be built on top of it.
	ErrDeckIntegrity = errors.New("deck integrity violation")
)

// NewDeck returns an ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for rank := RankLowest; rank <= RankPig; rank++ {
		for _, suit := range []Suit{SuitSpade, SuitClub, SuitDiamond, SuitHeart} {
			deck = append(deck, NewCard(rank, suit))
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck using the
// provided source. Every room owns its own rng; no shared state.
func ShuffleDeck(rng *rand.Rand, deck []Card) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// DealtHand pairs a player with their 13 dealt cards.
type DealtHand struct {
	PlayerID string
	Cards    []Card
}

// Deal shuffles a fresh deck and assigns 13 cards to each player in
// contiguous blocks. The result is verified before being returned;
// a verification failure is ErrDeckIntegrity and must abort the round.
func Deal(rng *rand.Rand, playerIDs []string) ([]DealtHand, error) {
	if len(playerIDs) < 2 || len(playerIDs) > 4 {
		return nil, ErrInvalidPlayerCount
	}

	deck := ShuffleDeck(rng, NewDeck())

	dealt := make([]DealtHand, len(playerIDs))
	for i, id := range playerIDs {
		start := i * HandSize
		hand := make([]Card, HandSize)
		copy(hand, deck[start:start+HandSize])
		dealt[i] = DealtHand{PlayerID: id, Cards: hand}
	}

	if err := verifyDeal(dealt, len(playerIDs)); err != nil {
		return nil, err
	}
	return dealt, nil
}

func verifyDeal(dealt []DealtHand, playerCount int) error {
	seen := make(map[string]bool, playerCount*HandSize)
	total := 0
	for _, dh := range dealt {
		if len(dh.Cards) != HandSize {
			return fmt.Errorf("%w: player %s received %d cards", ErrDeckIntegrity, dh.PlayerID, len(dh.Cards))
		}
		for _, c := range dh.Cards {
			if seen[c.ID] {
				return fmt.Errorf("%w: duplicate card %s", ErrDeckIntegrity, c.ID)
			}
			seen[c.ID] = true
			total++
		}
	}
	if total != playerCount*HandSize {
		return fmt.Errorf("%w: expected %d cards, got %d", ErrDeckIntegrity, playerCount*HandSize, total)
	}
	return nil
}
