package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Payout is one player's balance delta from a settlement. Every
// settlement function returns a zero-sum set of payouts.
type Payout struct {
	PlayerID string `json:"playerId"`
	Change   int64  `json:"change"`
	Reason   string `json:"reason,omitempty"`
}

// ErrSettlement marks a settlement whose payouts do not sum to zero.
// Like a corrupted deal this is a defect in the engine, not a
// recoverable condition.
var ErrSettlement = errors.New("settlement is not zero-sum")

// SettledPlayer is the snapshot the money engine operates on: final
// rank, burn flag and whatever cards the player still holds.
type SettledPlayer struct {
	ID     string
	Rank   int
	Burned bool
	Hand   []Card
}

// Money multipliers, expressed over the round's bet unit. Half-bet
// amounts are computed as bet/2, so bets must be even. The chop table
// is the canonical revision: pigs are valued per card, special shapes
// at a fixed multiple of the bet.
const (
	burnMultiplier       = 2 // a burned player pays 2x bet to the winner
	instantWinMultiplier = 2 // each opponent pays 2x bet to an instant winner
	quadValueMultiplier  = 2 // a beaten or leftover four of a kind
	fourPairsMultiplier  = 4 // a beaten four consecutive pairs
)

func pigValue(c Card, bet int64) int64 {
	if c.Suit.IsRed() {
		return bet
	}
	return bet / 2
}

// threePairsValue is 1.5x bet, for both chop and stale arithmetic.
func threePairsValue(bet int64) int64 {
	return bet + bet/2
}

// StaleResult describes the stale-card ("thối") penalty on a leftover
// hand: the total transfer plus human-readable detail lines.
type StaleResult struct {
	Total   int64
	Details []string
}

// StaleValue computes the stale-card penalty over a hand still held at
// round end. Each pig is charged individually, a leftover four of a
// kind is charged per rank, and a leftover three-consecutive-pairs run
// is charged once.
func StaleValue(hand []Card, bet int64) StaleResult {
	var res StaleResult
	counts := make(map[int32]int, len(hand))
	for _, c := range SortedCards(hand) {
		if c.IsPig() {
			if c.Suit.IsRed() {
				res.Details = append(res.Details, "red pig")
			} else {
				res.Details = append(res.Details, "black pig")
			}
			res.Total += pigValue(c, bet)
		}
		counts[c.Rank]++
	}

	for rank, n := range counts {
		if n == 4 && rank < RankPig {
			res.Total += bet * quadValueMultiplier
			res.Details = append(res.Details, "four of a kind")
		}
	}

	ranks := make([]int32, 0, len(counts))
	for r, n := range counts {
		if n >= 2 && r < RankPig {
			ranks = append(ranks, r)
		}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] < ranks[j] })
	for i := 0; i+2 < len(ranks); i++ {
		if ranks[i+1] == ranks[i]+1 && ranks[i+2] == ranks[i]+2 {
			res.Total += threePairsValue(bet)
			res.Details = append(res.Details, "three consecutive pairs")
			break
		}
	}

	return res
}

// ChopValue prices the move that just got chopped. Pigs are valued per
// card; a chopped special shape has a fixed value.
func ChopValue(victimShape HandShape, victimCards []Card, bet int64) int64 {
	var pigs int64
	for _, c := range victimCards {
		if c.IsPig() {
			pigs += pigValue(c, bet)
		}
	}
	if pigs > 0 {
		return pigs
	}

	switch victimShape {
	case ShapeThreeConsecutivePairs:
		return threePairsValue(bet)
	case ShapeFourOfAKind:
		return bet * quadValueMultiplier
	case ShapeFourConsecutivePairs:
		return bet * fourPairsMultiplier
	}
	return 0
}

// SettleRound computes the rank-based payouts for a finished round with
// no burned players, including the stale-card transfer from the loser
// to the table's designated receiver: the winner at a 2-player table,
// rank 2 at a 3-player table, rank 3 at a 4-player table.
func SettleRound(players []SettledPlayer, bet int64) []Payout {
	byRank := rankOrder(players)
	var payouts []Payout

	switch len(byRank) {
	case 2:
		payouts = append(payouts,
			Payout{PlayerID: byRank[0].ID, Change: bet, Reason: "first place"},
			Payout{PlayerID: byRank[1].ID, Change: -bet, Reason: "last place"},
		)
		payouts = appendStale(payouts, byRank[1], byRank[0], bet)
	case 3:
		payouts = append(payouts,
			Payout{PlayerID: byRank[0].ID, Change: bet, Reason: "first place"},
			Payout{PlayerID: byRank[1].ID, Change: 0, Reason: "second place"},
			Payout{PlayerID: byRank[2].ID, Change: -bet, Reason: "last place"},
		)
		payouts = appendStale(payouts, byRank[2], byRank[1], bet)
	case 4:
		payouts = append(payouts,
			Payout{PlayerID: byRank[0].ID, Change: bet, Reason: "first place"},
			Payout{PlayerID: byRank[1].ID, Change: bet / 2, Reason: "second place"},
			Payout{PlayerID: byRank[2].ID, Change: -bet / 2, Reason: "third place"},
			Payout{PlayerID: byRank[3].ID, Change: -bet, Reason: "last place"},
		)
		payouts = appendStale(payouts, byRank[3], byRank[2], bet)
	}

	return payouts
}

// SettleBurn computes payouts when one or more non-winning players
// never played a card. Each burned player pays the burn penalty to the
// winner, replacing their normal rank payout. With exactly two
// non-burned non-winners left (a 4-player table with one burn) they
// settle second and third between themselves; a sole remaining
// non-burned non-winner settles nothing. Stale cards are collected
// from every burned hand and paid to the winner.
func SettleBurn(players []SettledPlayer, bet int64) []Payout {
	byRank := rankOrder(players)
	if len(byRank) == 0 {
		return nil
	}
	winner := byRank[0]

	var payouts []Payout
	var collected int64
	var middle []SettledPlayer
	for _, p := range byRank[1:] {
		if p.Burned {
			payouts = append(payouts, Payout{PlayerID: p.ID, Change: -bet * burnMultiplier, Reason: "burned"})
			collected += bet * burnMultiplier
		} else {
			middle = append(middle, p)
		}
	}
	payouts = append(payouts, Payout{PlayerID: winner.ID, Change: collected, Reason: "burn collected"})

	if len(middle) == 2 {
		payouts = append(payouts,
			Payout{PlayerID: middle[0].ID, Change: bet / 2, Reason: "second place"},
			Payout{PlayerID: middle[1].ID, Change: -bet / 2, Reason: "third place"},
		)
	}

	for _, p := range byRank[1:] {
		if p.Burned {
			payouts = appendStale(payouts, p, winner, bet)
		}
	}

	return payouts
}

// SettleInstantWin pays the instant winner twice the bet from every
// other player. No cards are played in such a round.
func SettleInstantWin(winnerID string, playerIDs []string, bet int64) []Payout {
	winAmount := bet * instantWinMultiplier * int64(len(playerIDs)-1)
	payouts := make([]Payout, 0, len(playerIDs))
	for _, id := range playerIDs {
		if id == winnerID {
			payouts = append(payouts, Payout{PlayerID: id, Change: winAmount, Reason: "instant win"})
		} else {
			payouts = append(payouts, Payout{PlayerID: id, Change: -bet * instantWinMultiplier, Reason: "caught by instant win"})
		}
	}
	return payouts
}

// VerifyZeroSum confirms the system invariant that a settlement moves
// money around the table without creating or destroying any.
func VerifyZeroSum(payouts []Payout) error {
	var sum int64
	for _, p := range payouts {
		sum += p.Change
	}
	if sum != 0 {
		return fmt.Errorf("%w: sum=%d", ErrSettlement, sum)
	}
	return nil
}

func rankOrder(players []SettledPlayer) []SettledPlayer {
	out := make([]SettledPlayer, len(players))
	copy(out, players)
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

func appendStale(payouts []Payout, from, to SettledPlayer, bet int64) []Payout {
	if from.ID == to.ID {
		return payouts
	}
	stale := StaleValue(from.Hand, bet)
	if stale.Total == 0 {
		return payouts
	}
	detail := strings.Join(stale.Details, ", ")
	return append(payouts,
		Payout{PlayerID: from.ID, Change: -stale.Total, Reason: "stale cards: " + detail},
		Payout{PlayerID: to.ID, Change: stale.Total, Reason: "stale collected: " + detail},
	)
}
