package domain

import "sort"

// InstantWinReason names the dealt-hand condition that ends a round
// before any turn is taken.
type InstantWinReason string

const (
	InstantWinFourPigs  InstantWinReason = "four_pigs"
	InstantWinDragon    InstantWinReason = "dragon_straight"
	InstantWinFivePairs InstantWinReason = "five_consecutive_pairs"
	InstantWinSixPairs  InstantWinReason = "six_pairs"
	InstantWinNone      InstantWinReason = ""
)

// DetectInstantWin checks a dealt hand for an instant win. Conditions
// are evaluated in priority order and only the first match is reported.
// isFirstRound is accepted for rule variants that restrict certain wins
// to the opening round of a series; the current table applies all four
// conditions every round.
func DetectInstantWin(hand []Card, isFirstRound bool) InstantWinReason {
	counts := make(map[int32]int, len(hand))
	for _, c := range hand {
		counts[c.Rank]++
	}

	if counts[RankPig] == 4 {
		return InstantWinFourPigs
	}

	// One of every rank 3..A plus at least one pig.
	dragon := counts[RankPig] >= 1
	for r := RankLowest; r < RankPig && dragon; r++ {
		if counts[r] < 1 {
			dragon = false
		}
	}
	if dragon {
		return InstantWinDragon
	}

	if maxConsecutivePairRun(counts) >= 5 {
		return InstantWinFivePairs
	}

	pairs := 0
	for _, n := range counts {
		pairs += n / 2
	}
	if pairs >= 6 {
		return InstantWinSixPairs
	}

	return InstantWinNone
}

func maxConsecutivePairRun(counts map[int32]int) int {
	ranks := make([]int32, 0, len(counts))
	for r, n := range counts {
		if n >= 2 {
			ranks = append(ranks, r)
		}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] < ranks[j] })

	best, run := 0, 0
	for i, r := range ranks {
		if i > 0 && r == ranks[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
