package domain

import (
	"fmt"
	"sort"
)

// Suit identifies one of the four suits. The numeric order is the
// tie-break order used when two cards share a rank: spade is weakest,
// heart is strongest.
type Suit int32

const (
	SuitSpade Suit = iota
	SuitClub
	SuitDiamond
	SuitHeart
)

var suitNames = map[Suit]string{
	SuitSpade:   "spade",
	SuitClub:    "club",
	SuitDiamond: "diamond",
	SuitHeart:   "heart",
}

func (s Suit) String() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return fmt.Sprintf("suit(%d)", int32(s))
}

// IsRed reports whether the suit is hearts or diamonds. Red pigs are
// worth double a black pig in chop and stale-card arithmetic.
func (s Suit) IsRed() bool {
	return s == SuitHeart || s == SuitDiamond
}

const (
	// RankLowest is the 3, the weakest rank in the game.
	RankLowest int32 = 3
	// RankPig is the 2, the strongest rank. It cannot appear in
	// straights or consecutive-pair runs.
	RankPig int32 = 15
)

// Card is a single playing card. Ranks run 3..15 where 11..14 are
// J, Q, K, A and 15 is the 2. Cards are immutable once created.
type Card struct {
	Rank int32  `json:"rank"`
	Suit Suit   `json:"suit"`
	ID   string `json:"id"`
}

// NewCard builds a card with its canonical id.
func NewCard(rank int32, suit Suit) Card {
	return Card{Rank: rank, Suit: suit, ID: fmt.Sprintf("%d-%s", rank, suit)}
}

// IsPig reports whether the card is a 2.
func (c Card) IsPig() bool {
	return c.Rank == RankPig
}

// CardWeight returns the total ordering value of a card. Rank dominates,
// suit breaks ties, so no two cards in a deck compare equal.
func CardWeight(c Card) int32 {
	return c.Rank*10 + int32(c.Suit)
}

// SortCards orders cards by ascending weight in place.
func SortCards(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return CardWeight(cards[i]) < CardWeight(cards[j])
	})
}

// SortedCards returns a weight-sorted copy, leaving the input untouched.
func SortedCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	SortCards(out)
	return out
}
