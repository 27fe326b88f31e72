package domain

// HandShape classifies a card multiset into one of the legal Tien Len
// combinations. It is a closed enum: every multiset maps to exactly one
// shape, and everything unrecognized is ShapeInvalid.
type HandShape int32

const (
	ShapeInvalid HandShape = iota
	ShapeSingle
	ShapePair
	ShapeTriple
	ShapeStraight
	ShapeThreeConsecutivePairs
	ShapeFourConsecutivePairs
	ShapeFourOfAKind
)

var shapeNames = map[HandShape]string{
	ShapeInvalid:               "INVALID",
	ShapeSingle:                "SINGLE",
	ShapePair:                  "PAIR",
	ShapeTriple:                "TRIPLE",
	ShapeStraight:              "STRAIGHT",
	ShapeThreeConsecutivePairs: "THREE_CONSECUTIVE_PAIRS",
	ShapeFourConsecutivePairs:  "FOUR_CONSECUTIVE_PAIRS",
	ShapeFourOfAKind:           "FOUR_OF_A_KIND",
}

func (s HandShape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "INVALID"
}

// IsSpecial reports whether the shape is one of the chopping shapes
// (hàng): three consecutive pairs, four of a kind, four consecutive
// pairs. These are the only shapes that can beat out of order.
func (s HandShape) IsSpecial() bool {
	switch s {
	case ShapeThreeConsecutivePairs, ShapeFourOfAKind, ShapeFourConsecutivePairs:
		return true
	}
	return false
}

// Classify determines the shape of a card multiset. It is pure and
// order-independent; the input slice is never modified.
func Classify(cards []Card) HandShape {
	n := len(cards)
	if n == 0 {
		return ShapeInvalid
	}

	sorted := SortedCards(cards)
	ranks := make([]int32, n)
	hasPig := false
	for i, c := range sorted {
		ranks[i] = c.Rank
		if c.IsPig() {
			hasPig = true
		}
	}

	switch n {
	case 1:
		return ShapeSingle
	case 2:
		if ranks[0] == ranks[1] {
			return ShapePair
		}
		return ShapeInvalid
	case 3:
		if allEqual(ranks) {
			return ShapeTriple
		}
		if !hasPig && consecutive(ranks) {
			return ShapeStraight
		}
		return ShapeInvalid
	case 4:
		if allEqual(ranks) {
			return ShapeFourOfAKind
		}
		if !hasPig && consecutive(ranks) {
			return ShapeStraight
		}
		return ShapeInvalid
	}

	// 5+ distinct consecutive ranks, no pig.
	if !hasPig && distinct(ranks) && consecutive(ranks) {
		return ShapeStraight
	}

	// Consecutive pairs: even count, adjacent same-rank pairs with
	// consecutive pair ranks, no pig pair.
	if n%2 == 0 && n >= 6 && !hasPig {
		pairRanks := make([]int32, 0, n/2)
		for i := 0; i < n; i += 2 {
			if ranks[i] != ranks[i+1] {
				return ShapeInvalid
			}
			pairRanks = append(pairRanks, ranks[i])
		}
		if consecutive(pairRanks) {
			switch n {
			case 6:
				return ShapeThreeConsecutivePairs
			case 8:
				return ShapeFourConsecutivePairs
			}
		}
	}

	return ShapeInvalid
}

func allEqual(ranks []int32) bool {
	for _, r := range ranks[1:] {
		if r != ranks[0] {
			return false
		}
	}
	return true
}

func distinct(ranks []int32) bool {
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == ranks[i-1] {
			return false
		}
	}
	return true
}

// consecutive expects a sorted slice.
func consecutive(ranks []int32) bool {
	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			return false
		}
	}
	return true
}
