package bot

import (
	"sort"

	"tienlen/internal/domain"
)

// LowestLegalBot plays the cheapest combination that beats the standing
// move, or passes. Leading, it opens with its lowest single. It never
// holds bombs back: a chop is just another candidate, ranked after
// same-shape answers so bombs go last.
type LowestLegalBot struct{}

var _ Brain = (*LowestLegalBot)(nil)

func (b *LowestLegalBot) CalculateMove(game *domain.Game, player *domain.Player) (Move, error) {
	hand := domain.SortedCards(player.Hand)
	if len(hand) == 0 {
		return Move{Pass: true}, nil
	}

	if game.LastMove == nil {
		// Leading. On a forced opening the leader holds the lowest card
		// in play, which is this hand's first card either way.
		return Move{Cards: hand[:1]}, nil
	}

	var best []domain.Card
	bestSpecial := false
	for _, cand := range candidateResponses(hand, game.LastMove) {
		if domain.Compare(cand, game.LastMove.Cards) != 1 {
			continue
		}
		special := domain.Classify(cand).IsSpecial() && !game.LastMove.Shape.IsSpecial()
		if best == nil || (bestSpecial && !special) ||
			(bestSpecial == special && domain.MaxWeight(cand) < domain.MaxWeight(best)) {
			best = cand
			bestSpecial = special
		}
	}
	if best == nil {
		return Move{Pass: true}, nil
	}
	return Move{Cards: best}, nil
}

// candidateResponses enumerates the combinations worth trying against
// the standing move: same-shape answers plus every chop the hand can
// produce. Candidates that cannot actually beat are filtered by Compare
// at the call site.
func candidateResponses(hand []domain.Card, standing *domain.Move) [][]domain.Card {
	groups := rankGroups(hand)
	var out [][]domain.Card

	switch standing.Shape {
	case domain.ShapeSingle:
		for _, c := range hand {
			out = append(out, []domain.Card{c})
		}
	case domain.ShapePair, domain.ShapeTriple:
		k := 2
		if standing.Shape == domain.ShapeTriple {
			k = 3
		}
		for _, g := range groups {
			if len(g.cards) >= k {
				// Highest suits of the rank, so the rank decides.
				out = append(out, g.cards[len(g.cards)-k:])
			}
		}
	case domain.ShapeStraight:
		out = append(out, straightRuns(groups, len(standing.Cards))...)
	}

	out = append(out, quads(groups)...)
	out = append(out, pairRuns(groups, 3)...)
	out = append(out, pairRuns(groups, 4)...)
	return out
}

type rankGroup struct {
	rank  int32
	cards []domain.Card // sorted ascending by suit
}

func rankGroups(sortedHand []domain.Card) []rankGroup {
	var out []rankGroup
	for _, c := range sortedHand {
		if n := len(out); n > 0 && out[n-1].rank == c.Rank {
			out[n-1].cards = append(out[n-1].cards, c)
			continue
		}
		out = append(out, rankGroup{rank: c.Rank, cards: []domain.Card{c}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank < out[j].rank })
	return out
}

func quads(groups []rankGroup) [][]domain.Card {
	var out [][]domain.Card
	for _, g := range groups {
		if len(g.cards) == 4 {
			out = append(out, g.cards)
		}
	}
	return out
}

// straightRuns yields runs of exactly length n, one card per rank, pigs
// excluded. The top rank contributes its highest suit so the run beats
// by as much as the rank allows.
func straightRuns(groups []rankGroup, n int) [][]domain.Card {
	var out [][]domain.Card
	for start := 0; start+n <= len(groups); start++ {
		run := make([]domain.Card, 0, n)
		for i := start; i < start+n; i++ {
			g := groups[i]
			if g.rank == domain.RankPig || (i > start && g.rank != groups[i-1].rank+1) {
				run = nil
				break
			}
			if i == start+n-1 {
				run = append(run, g.cards[len(g.cards)-1])
			} else {
				run = append(run, g.cards[0])
			}
		}
		if run != nil {
			out = append(out, run)
		}
	}
	return out
}

// pairRuns yields n consecutive pairs, pigs excluded, highest suits per
// rank.
func pairRuns(groups []rankGroup, n int) [][]domain.Card {
	var out [][]domain.Card
	for start := 0; start+n <= len(groups); start++ {
		run := make([]domain.Card, 0, 2*n)
		for i := start; i < start+n; i++ {
			g := groups[i]
			if g.rank == domain.RankPig || len(g.cards) < 2 || (i > start && g.rank != groups[i-1].rank+1) {
				run = nil
				break
			}
			run = append(run, g.cards[len(g.cards)-2:]...)
		}
		if run != nil {
			out = append(out, run)
		}
	}
	return out
}
