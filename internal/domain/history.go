package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryLimit caps how many finished rounds are retained for display.
const HistoryLimit = 50

// RoundEventKind tags a notable event inside a round.
type RoundEventKind string

const (
	EventChop       RoundEventKind = "chop"
	EventOverChop   RoundEventKind = "over_chop"
	EventBurn       RoundEventKind = "burn"
	EventStale      RoundEventKind = "stale"
	EventInstantWin RoundEventKind = "instant_win"
)

// RoundEvent is one notable occurrence in a round: a chop resolving, a
// player getting burned, a stale-card transfer, an instant win.
type RoundEvent struct {
	Kind      RoundEventKind `json:"kind"`
	FromID    string         `json:"fromId,omitempty"`
	ToID      string         `json:"toId,omitempty"`
	PlayerID  string         `json:"playerId,omitempty"`
	Amount    int64          `json:"amount,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// PlayerRecord is one player's line in a round's history entry.
type PlayerRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Rank          int      `json:"rank"`
	BalanceBefore int64    `json:"balanceBefore"`
	BalanceAfter  int64    `json:"balanceAfter"`
	Change        int64    `json:"change"`
	Burned        bool     `json:"burned"`
	Transactions  []Payout `json:"transactions,omitempty"`
}

// HistoryEntry is an immutable snapshot appended when a round ends.
type HistoryEntry struct {
	RoundID   string         `json:"roundId"`
	Timestamp int64          `json:"timestamp"`
	Bet       int64          `json:"bet"`
	Players   []PlayerRecord `json:"players"`
	Events    []RoundEvent   `json:"events"`
}

func newHistoryEntry(bet int64) HistoryEntry {
	return HistoryEntry{
		RoundID:   uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Bet:       bet,
	}
}
