package app

import "tienlen/internal/domain"

// EventKind identifies emitted domain events for transport dispatch.
type EventKind string

const (
	EventPlayerJoined EventKind = "player_joined"
	EventPlayerLeft   EventKind = "player_left"
	EventBetChanged   EventKind = "bet_changed"
	EventRoundStarted EventKind = "round_started"
	EventHandDealt    EventKind = "hand_dealt"
	EventMovePlayed   EventKind = "move_played"
	EventTurnPassed   EventKind = "turn_passed"
	EventChop         EventKind = "chop"
	EventSpecialTurn  EventKind = "special_turn"
	EventTrickReset   EventKind = "trick_reset"
	EventInstantWin   EventKind = "instant_win"
	EventRoundEnded   EventKind = "round_ended"
	EventState        EventKind = "state"
)

// Event is a domain/app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

// Payloads are marshaled to JSON as-is by both transports.

type PlayerJoinedPayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Seat   int    `json:"seat,omitempty"`
	Owner  bool   `json:"owner,omitempty"`
}

type PlayerLeftPayload struct {
	UserID string `json:"userId"`
}

type BetChangedPayload struct {
	Bet int64 `json:"bet"`
}

type RoundStartedPayload struct {
	Bet             int64  `json:"bet"`
	FirstTurnUserID string `json:"firstTurnUserId"`
	OpeningForced   bool   `json:"openingForced"`
}

type HandDealtPayload struct {
	UserID string        `json:"userId"`
	Hand   []domain.Card `json:"hand"`
}

type MovePlayedPayload struct {
	UserID         string      `json:"userId"`
	Move           domain.Move `json:"move"`
	NextTurnUserID string      `json:"nextTurnUserId"`
}

type TurnPassedPayload struct {
	UserID         string `json:"userId"`
	NextTurnUserID string `json:"nextTurnUserId"`
}

type ChopPayload struct {
	Info domain.ChopInfo `json:"info"`
}

type SpecialTurnPayload struct {
	UserID string `json:"userId"`
}

type TrickResetPayload struct {
	LeaderUserID string `json:"leaderUserId"`
}

type InstantWinPayload struct {
	UserID string                  `json:"userId"`
	Reason domain.InstantWinReason `json:"reason"`
}

type RoundEndedPayload struct {
	Ranks   map[string]int   `json:"ranks"`
	Changes map[string]int64 `json:"changes"`
}

type StatePayload struct {
	State domain.StateView `json:"state"`
}
