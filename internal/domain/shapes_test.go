package domain

import (
	"math/rand"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		cards    []Card
		expected HandShape
	}{
		{
			name:     "single",
			cards:    []Card{NewCard(3, SuitSpade)},
			expected: ShapeSingle,
		},
		{
			name:     "pair",
			cards:    []Card{NewCard(7, SuitSpade), NewCard(7, SuitHeart)},
			expected: ShapePair,
		},
		{
			name:     "mismatched pair",
			cards:    []Card{NewCard(7, SuitSpade), NewCard(8, SuitHeart)},
			expected: ShapeInvalid,
		},
		{
			name:     "triple",
			cards:    []Card{NewCard(9, SuitSpade), NewCard(9, SuitClub), NewCard(9, SuitDiamond)},
			expected: ShapeTriple,
		},
		{
			name:     "three card straight",
			cards:    []Card{NewCard(3, SuitSpade), NewCard(4, SuitClub), NewCard(5, SuitHeart)},
			expected: ShapeStraight,
		},
		{
			name:     "straight may not contain a pig",
			cards:    []Card{NewCard(13, SuitSpade), NewCard(14, SuitClub), NewCard(15, SuitHeart)},
			expected: ShapeInvalid,
		},
		{
			name:     "four of a kind",
			cards:    []Card{NewCard(11, SuitSpade), NewCard(11, SuitClub), NewCard(11, SuitDiamond), NewCard(11, SuitHeart)},
			expected: ShapeFourOfAKind,
		},
		{
			name:     "four card straight",
			cards:    []Card{NewCard(4, SuitSpade), NewCard(5, SuitClub), NewCard(6, SuitHeart), NewCard(7, SuitDiamond)},
			expected: ShapeStraight,
		},
		{
			name: "five card straight",
			cards: []Card{
				NewCard(8, SuitSpade), NewCard(9, SuitClub), NewCard(10, SuitHeart),
				NewCard(11, SuitDiamond), NewCard(12, SuitSpade),
			},
			expected: ShapeStraight,
		},
		{
			name: "straight with duplicate rank",
			cards: []Card{
				NewCard(8, SuitSpade), NewCard(8, SuitClub), NewCard(9, SuitHeart),
				NewCard(10, SuitDiamond), NewCard(11, SuitSpade),
			},
			expected: ShapeInvalid,
		},
		{
			name: "three consecutive pairs",
			cards: []Card{
				NewCard(4, SuitSpade), NewCard(4, SuitClub),
				NewCard(5, SuitSpade), NewCard(5, SuitClub),
				NewCard(6, SuitSpade), NewCard(6, SuitClub),
			},
			expected: ShapeThreeConsecutivePairs,
		},
		{
			name: "gapped pairs",
			cards: []Card{
				NewCard(4, SuitSpade), NewCard(4, SuitClub),
				NewCard(6, SuitSpade), NewCard(6, SuitClub),
				NewCard(7, SuitSpade), NewCard(7, SuitClub),
			},
			expected: ShapeInvalid,
		},
		{
			name: "pair run may not contain pigs",
			cards: []Card{
				NewCard(13, SuitSpade), NewCard(13, SuitClub),
				NewCard(14, SuitSpade), NewCard(14, SuitClub),
				NewCard(15, SuitSpade), NewCard(15, SuitClub),
			},
			expected: ShapeInvalid,
		},
		{
			name: "four consecutive pairs",
			cards: []Card{
				NewCard(4, SuitSpade), NewCard(4, SuitClub),
				NewCard(5, SuitSpade), NewCard(5, SuitClub),
				NewCard(6, SuitSpade), NewCard(6, SuitClub),
				NewCard(7, SuitSpade), NewCard(7, SuitClub),
			},
			expected: ShapeFourConsecutivePairs,
		},
		{
			name:     "empty",
			cards:    nil,
			expected: ShapeInvalid,
		},
		{
			name: "seven random cards",
			cards: []Card{
				NewCard(3, SuitSpade), NewCard(5, SuitClub), NewCard(6, SuitHeart),
				NewCard(9, SuitDiamond), NewCard(11, SuitSpade), NewCard(12, SuitClub),
				NewCard(14, SuitHeart),
			},
			expected: ShapeInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.cards); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// Classification must not depend on input order, and must not reorder
// the caller's slice.
func TestClassifyOrderIndependent(t *testing.T) {
	cards := []Card{
		NewCard(4, SuitSpade), NewCard(4, SuitClub),
		NewCard(5, SuitSpade), NewCard(5, SuitClub),
		NewCard(6, SuitSpade), NewCard(6, SuitClub),
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := make([]Card, len(cards))
		copy(shuffled, cards)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		before := make([]Card, len(shuffled))
		copy(before, shuffled)
		if got := Classify(shuffled); got != ShapeThreeConsecutivePairs {
			t.Fatalf("iteration %d: expected THREE_CONSECUTIVE_PAIRS, got %v", i, got)
		}
		for j := range shuffled {
			if shuffled[j] != before[j] {
				t.Fatalf("iteration %d: Classify reordered its input", i)
			}
		}
	}
}
