package domain

// incumbentKey identifies what is standing on the table for the purpose
// of the chop relation: its shape, and whether it is made of pigs.
type incumbentKey struct {
	Shape HandShape
	Pig   bool
}

// chopBeats is the explicit cross-shape beat table. For each standing
// shape it lists the shapes that beat it out of the normal same-shape
// order. Anything absent here only loses to a stronger hand of its own
// shape and cardinality.
//
// A single pig falls to any of the three special shapes; a pig pair
// needs at least a four of a kind; three consecutive pairs fall to four
// of a kind or four consecutive pairs; four of a kind falls only to
// four consecutive pairs.
var chopBeats = map[incumbentKey][]HandShape{
	{ShapeSingle, true}:                 {ShapeThreeConsecutivePairs, ShapeFourOfAKind, ShapeFourConsecutivePairs},
	{ShapePair, true}:                   {ShapeFourOfAKind, ShapeFourConsecutivePairs},
	{ShapeThreeConsecutivePairs, false}: {ShapeFourOfAKind, ShapeFourConsecutivePairs},
	{ShapeFourOfAKind, false}:           {ShapeFourConsecutivePairs},
}

func keyFor(shape HandShape, cards []Card) incumbentKey {
	pig := len(cards) > 0 && cards[0].IsPig()
	// Only single and pair pigs participate in the pig rows.
	if shape != ShapeSingle && shape != ShapePair {
		pig = false
	}
	return incumbentKey{Shape: shape, Pig: pig}
}

func chops(attacker HandShape, incumbent incumbentKey) bool {
	for _, s := range chopBeats[incumbent] {
		if s == attacker {
			return true
		}
	}
	return false
}

// MaxWeight returns the weight of the strongest card in the set.
func MaxWeight(cards []Card) int32 {
	maxW := int32(-1)
	for _, c := range cards {
		if w := CardWeight(c); w > maxW {
			maxW = w
		}
	}
	return maxW
}

// Compare reports whether challenger beats incumbent: +1 if it does,
// -1 if the incumbent would beat the challenger, 0 when neither relation
// holds (including any invalid input). Callers only act on +1.
func Compare(challenger, incumbent []Card) int {
	challengerShape := Classify(challenger)
	incumbentShape := Classify(incumbent)
	if challengerShape == ShapeInvalid || incumbentShape == ShapeInvalid {
		return 0
	}

	// Same shape and cardinality: strict order by highest card weight.
	// Card ids are unique within a deck so equality cannot occur.
	if challengerShape == incumbentShape && len(challenger) == len(incumbent) {
		if MaxWeight(challenger) > MaxWeight(incumbent) {
			return 1
		}
		return -1
	}

	if chops(challengerShape, keyFor(incumbentShape, SortedCards(incumbent))) {
		return 1
	}
	if chops(incumbentShape, keyFor(challengerShape, SortedCards(challenger))) {
		return -1
	}
	return 0
}

// IsChop reports whether playing attackerShape over the standing cards
// constitutes a chop: a special shape landing on pigs or on another
// special shape. Plain same-shape wins over pigs are not chops.
func IsChop(attackerShape HandShape, standingShape HandShape, standingCards []Card) bool {
	if !attackerShape.IsSpecial() {
		return false
	}
	if standingShape.IsSpecial() {
		return true
	}
	for _, c := range standingCards {
		if c.IsPig() {
			return true
		}
	}
	return false
}
