package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Phase is the lifecycle stage of a round.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Rejected-action reasons. These are expected and frequent; they never
// mutate state. ErrDeckIntegrity and ErrSettlement (see deck.go,
// money.go) are the only fatal tier.
var (
	ErrRoundNotPlaying     = errors.New("round is not in progress")
	ErrRoundInProgress     = errors.New("round is already in progress")
	ErrTooFewPlayers       = errors.New("at least 2 players are required")
	ErrUnknownPlayer       = errors.New("player not found")
	ErrCardsNotHeld        = errors.New("cards are not in the player's hand")
	ErrInvalidShape        = errors.New("cards do not form a valid combination")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrAlreadyPassed       = errors.New("already passed this trick")
	ErrCannotBeat          = errors.New("combination does not beat the standing move")
	ErrOpeningCardRequired = errors.New("opening move must include the lowest card")
	ErrBalanceTooLow       = errors.New("balance below the table bet")
)

// Player is per-round mutable player state. Balance persists across
// rounds; everything else resets on deal.
type Player struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Balance          int64  `json:"balance"`
	Hand             []Card `json:"hand"`
	HasPlayedAnyCard bool   `json:"hasPlayedAnyCard"`
	IsBurned         bool   `json:"isBurned"`
	FinishedRank     int    `json:"finishedRank,omitempty"`
}

// Move is the standing trick-leading play.
type Move struct {
	Shape      HandShape `json:"shape"`
	Cards      []Card    `json:"cards"`
	PlayerID   string    `json:"playerId"`
	Timestamp  int64     `json:"timestamp"`
	IsChop     bool      `json:"isChop,omitempty"`
	IsOverChop bool      `json:"isOverChop,omitempty"`
}

// ChopKind distinguishes a first chop from a chop landing on an
// already-chopped trick.
type ChopKind string

const (
	ChopKindChop     ChopKind = "CHOP"
	ChopKindOverChop ChopKind = "OVER_CHOP"
)

// ChopInfo reports a chop the instant it lands. Amount is the total
// pending value of the chain so far; it transfers when the trick
// resolves, from the chain's first victim to its final attacker.
type ChopInfo struct {
	AttackerID string    `json:"attackerId"`
	VictimID   string    `json:"victimId"`
	Kind       ChopKind  `json:"kind"`
	Amount     int64     `json:"amount"`
	Shape      HandShape `json:"shape"`
}

// PlayResult describes a successfully applied move.
type PlayResult struct {
	Move       Move
	Chop       *ChopInfo
	TrickReset bool
	RoundEnded bool
	NextTurnID string
}

type chopLink struct {
	attackerID string
	victimID   string
	value      int64
}

// PlayerSeat is the immutable identity used to build a game.
type PlayerSeat struct {
	ID      string
	Name    string
	Balance int64
}

// Game owns all mutable state for one table across consecutive rounds.
// It is not safe for concurrent use; the room layer serializes access.
type Game struct {
	Players        []*Player
	Bet            int64
	CurrentTurn    int
	LastMove       *Move
	Phase          Phase
	SpecialTurnFor string

	passed            map[string]bool
	finished          []string
	chopChain         []chopLink
	isFirstRound      bool
	lastWasInstantWin bool
	startingPlayerID  string
	history           []HistoryEntry

	openingCard    *Card
	openingPending bool

	roundEvents []RoundEvent
	lastPayouts []Payout

	rng *rand.Rand
}

// NewGame builds a table in the waiting phase. A nil rng gets a
// time-seeded source; every table owns its own.
func NewGame(seats []PlayerSeat, bet int64, rng *rand.Rand) *Game {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	players := make([]*Player, len(seats))
	for i, s := range seats {
		players[i] = &Player{ID: s.ID, Name: s.Name, Balance: s.Balance}
	}
	return &Game{
		Players:      players,
		Bet:          bet,
		Phase:        PhaseWaiting,
		passed:       make(map[string]bool),
		isFirstRound: true,
		rng:          rng,
	}
}

// AddPlayer seats a new player. Seating happens only between rounds.
func (g *Game) AddPlayer(seat PlayerSeat) error {
	if g.Phase == PhasePlaying {
		return ErrRoundInProgress
	}
	if g.indexOf(seat.ID) >= 0 {
		return fmt.Errorf("player %s is already seated", seat.ID)
	}
	g.Players = append(g.Players, &Player{ID: seat.ID, Name: seat.Name, Balance: seat.Balance})
	return nil
}

// SetBet changes the table bet between rounds. Bets stay even so the
// half-bet payouts remain exact.
func (g *Game) SetBet(amount int64) error {
	if g.Phase == PhasePlaying {
		return ErrRoundInProgress
	}
	if amount <= 0 || amount%2 != 0 {
		return fmt.Errorf("bet must be a positive even amount, got %d", amount)
	}
	g.Bet = amount
	return nil
}

// StartRound deals a new round. It fails with a rejected-action error
// when the table cannot start, and with ErrDeckIntegrity or
// ErrSettlement when the engine itself is broken.
func (g *Game) StartRound() error {
	if g.Phase == PhasePlaying {
		return ErrRoundInProgress
	}
	if len(g.Players) < 2 {
		return ErrTooFewPlayers
	}
	for _, p := range g.Players {
		if p.Balance < g.Bet {
			return fmt.Errorf("%w: player %s", ErrBalanceTooLow, p.ID)
		}
	}

	ids := make([]string, len(g.Players))
	for i, p := range g.Players {
		ids[i] = p.ID
	}
	dealt, err := Deal(g.rng, ids)
	if err != nil {
		return err
	}

	g.Phase = PhasePlaying
	g.LastMove = nil
	g.SpecialTurnFor = ""
	g.passed = make(map[string]bool)
	g.finished = nil
	g.chopChain = nil
	g.roundEvents = nil
	g.lastPayouts = nil
	g.openingCard = nil
	g.openingPending = false

	for i, p := range g.Players {
		p.Hand = SortedCards(dealt[i].Cards)
		p.FinishedRank = 0
		p.HasPlayedAnyCard = false
		p.IsBurned = false
	}

	for _, p := range g.Players {
		if reason := DetectInstantWin(p.Hand, g.isFirstRound); reason != InstantWinNone {
			return g.handleInstantWin(p, reason)
		}
	}

	if g.isFirstRound || g.lastWasInstantWin {
		idx, card := g.lowestCardHolder()
		g.CurrentTurn = idx
		g.openingCard = &card
		g.openingPending = true
	} else if idx := g.indexOf(g.startingPlayerID); idx >= 0 {
		g.CurrentTurn = idx
	} else {
		g.CurrentTurn = 0
	}
	return nil
}

// lowestCardHolder finds the seat holding the lowest-weight card in
// play; that card is the forced opener of a first round.
func (g *Game) lowestCardHolder() (int, Card) {
	bestIdx := 0
	var bestCard Card
	bestWeight := int32(1 << 30)
	for i, p := range g.Players {
		for _, c := range p.Hand {
			if w := CardWeight(c); w < bestWeight {
				bestWeight = w
				bestIdx = i
				bestCard = c
			}
		}
	}
	return bestIdx, bestCard
}

func (g *Game) handleInstantWin(winner *Player, reason InstantWinReason) error {
	payouts := SettleInstantWin(winner.ID, g.playerIDs(), g.Bet)
	if err := VerifyZeroSum(payouts); err != nil {
		return err
	}
	g.applyPayouts(payouts)

	g.finished = []string{winner.ID}
	winner.FinishedRank = 1
	for _, p := range g.Players {
		if p.ID != winner.ID {
			g.finished = append(g.finished, p.ID)
			p.FinishedRank = len(g.finished)
		}
	}

	g.roundEvents = append(g.roundEvents, RoundEvent{
		Kind:      EventInstantWin,
		PlayerID:  winner.ID,
		Detail:    string(reason),
		Timestamp: time.Now().UnixMilli(),
	})

	g.Phase = PhaseFinished
	g.startingPlayerID = winner.ID
	g.isFirstRound = false
	g.lastWasInstantWin = true
	g.recordHistory()
	return nil
}

// PlayMove validates and applies a play. Preconditions are checked in a
// fixed order and the first failure is returned without mutating state.
func (g *Game) PlayMove(playerID string, cardIDs []string) (*PlayResult, error) {
	if g.Phase != PhasePlaying {
		return nil, ErrRoundNotPlaying
	}
	player := g.player(playerID)
	if player == nil {
		return nil, ErrUnknownPlayer
	}

	cards, ok := pickCards(player.Hand, cardIDs)
	if !ok {
		return nil, ErrCardsNotHeld
	}

	if g.openingPending && !containsCard(cards, g.openingCard.ID) {
		return nil, ErrOpeningCardRequired
	}

	shape := Classify(cards)
	if shape == ShapeInvalid {
		return nil, ErrInvalidShape
	}

	onTurn := g.Players[g.CurrentTurn].ID == playerID
	interrupt := !onTurn && playerID == g.SpecialTurnFor && shape == ShapeFourConsecutivePairs
	if !onTurn && !interrupt {
		return nil, ErrNotYourTurn
	}
	if g.passed[playerID] && !interrupt {
		return nil, ErrAlreadyPassed
	}
	if g.LastMove != nil && Compare(cards, g.LastMove.Cards) != 1 {
		return nil, ErrCannotBeat
	}

	// All preconditions hold; apply atomically from here.
	move := Move{
		Shape:     shape,
		Cards:     SortedCards(cards),
		PlayerID:  playerID,
		Timestamp: time.Now().UnixMilli(),
	}

	var chopInfo *ChopInfo
	if g.LastMove != nil && IsChop(shape, g.LastMove.Shape, g.LastMove.Cards) {
		value := ChopValue(g.LastMove.Shape, g.LastMove.Cards, g.Bet)
		g.chopChain = append(g.chopChain, chopLink{
			attackerID: playerID,
			victimID:   g.LastMove.PlayerID,
			value:      value,
		})
		kind := ChopKindChop
		if len(g.chopChain) > 1 {
			kind = ChopKindOverChop
			move.IsOverChop = true
		} else {
			move.IsChop = true
		}
		chopInfo = &ChopInfo{
			AttackerID: playerID,
			VictimID:   g.chopChain[0].victimID,
			Kind:       kind,
			Amount:     g.pendingChopTotal(),
			Shape:      shape,
		}
	}

	player.Hand = removeCards(player.Hand, cardIDs)
	player.HasPlayedAnyCard = true
	g.openingPending = false
	g.LastMove = &move
	if interrupt {
		g.CurrentTurn = g.indexOf(playerID)
	}
	g.grantSpecialTurn()

	result := &PlayResult{Move: move, Chop: chopInfo}
	if len(player.Hand) == 0 {
		if err := g.handleFinish(player, result); err != nil {
			return nil, err
		}
	} else {
		g.advanceTurn(result)
	}
	if g.Phase == PhasePlaying {
		result.NextTurnID = g.Players[g.CurrentTurn].ID
	}
	return result, nil
}

// PassTurn records a pass. Illegal passes are silently ignored; a pass
// from the holder of the special-turn slot also declines that slot.
func (g *Game) PassTurn(playerID string) {
	if g.Phase != PhasePlaying {
		return
	}
	if g.SpecialTurnFor == playerID {
		g.SpecialTurnFor = ""
	}
	if g.Players[g.CurrentTurn].ID != playerID || g.LastMove == nil {
		return
	}
	g.passed[playerID] = true
	g.advanceTurn(&PlayResult{})
}

// OpeningPending reports whether the next play must include the lowest
// card in play (first round of a series, or after an instant win).
func (g *Game) OpeningPending() bool {
	return g.openingPending
}

// DeclineSpecialTurn gives up the one-shot four-consecutive-pairs
// interrupt without affecting normal turn order.
func (g *Game) DeclineSpecialTurn(playerID string) {
	if g.SpecialTurnFor == playerID {
		g.SpecialTurnFor = ""
	}
}

// RemovePlayer drops a player from the table, reassigning the turn and
// ending the round when fewer than two players remain. The transport
// layer calls this on disconnects; any settlement for an abandoned
// round is its policy decision.
func (g *Game) RemovePlayer(playerID string) {
	idx := g.indexOf(playerID)
	if idx < 0 {
		return
	}

	wasTurn := g.Phase == PhasePlaying && g.CurrentTurn == idx

	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	delete(g.passed, playerID)
	for i, id := range g.finished {
		if id == playerID {
			g.finished = append(g.finished[:i], g.finished[i+1:]...)
			break
		}
	}
	if g.CurrentTurn > idx {
		g.CurrentTurn--
	}
	if g.CurrentTurn >= len(g.Players) {
		g.CurrentTurn = 0
	}
	if g.SpecialTurnFor == playerID {
		g.SpecialTurnFor = ""
	}
	if g.startingPlayerID == playerID && len(g.Players) > 0 {
		g.startingPlayerID = g.Players[0].ID
	}

	if g.Phase != PhasePlaying {
		return
	}
	if len(g.Players) < 2 {
		// Not enough players to settle anything meaningful.
		g.Phase = PhaseFinished
		g.LastMove = nil
		g.chopChain = nil
		return
	}
	if g.LastMove != nil && g.LastMove.PlayerID == playerID {
		g.resetTrick(g.CurrentTurn, &PlayResult{})
		return
	}
	if wasTurn {
		g.CurrentTurn = (g.CurrentTurn + len(g.Players) - 1) % len(g.Players)
		g.advanceTurn(&PlayResult{})
	}
}

// grantSpecialTurn hands the one-shot interrupt slot to the first other
// active player, clockwise from the standing-move owner, whose hand
// contains a four-consecutive-pairs run beating the standing move. The
// slot exists only while a choppable move stands.
func (g *Game) grantSpecialTurn() {
	g.SpecialTurnFor = ""
	if g.LastMove == nil || !g.standingIsChoppable() {
		return
	}
	n := len(g.Players)
	owner := g.indexOf(g.LastMove.PlayerID)
	for step := 1; step < n; step++ {
		p := g.Players[(owner+step)%n]
		if p.ID == g.LastMove.PlayerID || p.IsBurned || g.isFinished(p.ID) {
			continue
		}
		if holdsFourPairChop(p.Hand, g.LastMove) {
			g.SpecialTurnFor = p.ID
			return
		}
	}
}

// standingIsChoppable reports whether the standing move is an open
// chop target: a pig single or pair, or one of the special shapes.
func (g *Game) standingIsChoppable() bool {
	m := g.LastMove
	if m.Shape.IsSpecial() {
		return true
	}
	if m.Shape != ShapeSingle && m.Shape != ShapePair {
		return false
	}
	for _, c := range m.Cards {
		if c.IsPig() {
			return true
		}
	}
	return false
}

// holdsFourPairChop reports whether the hand can produce a four
// consecutive pairs run that beats the standing move.
func holdsFourPairChop(hand []Card, standing *Move) bool {
	byRank := make(map[int32][]Card)
	for _, c := range hand {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}
	for start := RankLowest; start+3 < RankPig; start++ {
		run := true
		for r := start; r <= start+3; r++ {
			if len(byRank[r]) < 2 {
				run = false
				break
			}
		}
		if !run {
			continue
		}
		if standing.Shape != ShapeFourConsecutivePairs {
			return true
		}
		// Against a standing four-pair run the challenger must be
		// strictly higher by top-card weight.
		top := byRank[start+3]
		if MaxWeight(top) > MaxWeight(standing.Cards) {
			return true
		}
	}
	return false
}

// advanceTurn rotates clockwise, skipping finished, burned and passed
// players. Landing back on the standing-move owner resets the trick.
func (g *Game) advanceTurn(result *PlayResult) {
	if g.Phase != PhasePlaying {
		return
	}
	n := len(g.Players)
	idx := g.CurrentTurn
	for step := 0; step < n; step++ {
		idx = (idx + 1) % n
		p := g.Players[idx]
		if g.LastMove != nil && p.ID == g.LastMove.PlayerID {
			g.resetTrick(idx, result)
			return
		}
		if g.isFinished(p.ID) || p.IsBurned || g.passed[p.ID] {
			continue
		}
		g.CurrentTurn = idx
		return
	}

	// Everyone else is finished, burned or passed, and the standing
	// owner is already out of cards: the trick resolves to the next
	// player still holding a hand.
	if g.LastMove != nil {
		g.resetTrick(g.indexOf(g.LastMove.PlayerID), result)
	}
}

// resetTrick clears the board, resolves any pending chop chain, and
// hands the lead to the given seat (or the next active seat after it).
func (g *Game) resetTrick(leadIdx int, result *PlayResult) {
	g.resolveChopChain()
	g.LastMove = nil
	g.SpecialTurnFor = ""
	g.passed = make(map[string]bool)
	result.TrickReset = true

	n := len(g.Players)
	for step := 0; step < n; step++ {
		p := g.Players[(leadIdx+step)%n]
		if !g.isFinished(p.ID) && !p.IsBurned {
			g.CurrentTurn = (leadIdx + step) % n
			return
		}
	}
}

// resolveChopChain transfers the accumulated chain value from the
// original victim to the final chopper. Intermediate choppers get
// nothing. Called only at trick resolution or round end.
func (g *Game) resolveChopChain() {
	if len(g.chopChain) == 0 {
		return
	}
	total := g.pendingChopTotal()
	victimID := g.chopChain[0].victimID
	winnerID := g.chopChain[len(g.chopChain)-1].attackerID
	kind := EventChop
	reason := "chop won"
	if len(g.chopChain) > 1 {
		kind = EventOverChop
		reason = "over-chop won"
	}
	g.chopChain = nil

	if victimID == winnerID {
		return
	}
	victim := g.player(victimID)
	winner := g.player(winnerID)
	if victim == nil || winner == nil {
		return
	}

	payouts := []Payout{
		{PlayerID: winnerID, Change: total, Reason: reason},
		{PlayerID: victimID, Change: -total, Reason: "chopped"},
	}
	g.applyPayouts(payouts)
	g.roundEvents = append(g.roundEvents, RoundEvent{
		Kind:      kind,
		FromID:    victimID,
		ToID:      winnerID,
		Amount:    total,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (g *Game) pendingChopTotal() int64 {
	var total int64
	for _, link := range g.chopChain {
		total += link.value
	}
	return total
}

// handleFinish assigns the next rank to a player who emptied their
// hand, applies the burn rule on the first finisher, and ends the
// round once at most one active player still holds cards.
func (g *Game) handleFinish(player *Player, result *PlayResult) error {
	g.finished = append(g.finished, player.ID)
	player.FinishedRank = len(g.finished)

	if player.FinishedRank == 1 {
		for _, p := range g.Players {
			if p.ID != player.ID && !p.HasPlayedAnyCard {
				p.IsBurned = true
				g.roundEvents = append(g.roundEvents, RoundEvent{
					Kind:      EventBurn,
					PlayerID:  p.ID,
					Timestamp: time.Now().UnixMilli(),
				})
			}
		}
	}

	var remainingActive, remainingBurned []*Player
	for _, p := range g.Players {
		if g.isFinished(p.ID) {
			continue
		}
		if p.IsBurned {
			remainingBurned = append(remainingBurned, p)
		} else {
			remainingActive = append(remainingActive, p)
		}
	}

	if len(remainingActive) > 1 {
		g.advanceTurn(result)
		return nil
	}

	// Round over: non-burned players rank ahead of burned ones.
	for _, p := range append(remainingActive, remainingBurned...) {
		g.finished = append(g.finished, p.ID)
		p.FinishedRank = len(g.finished)
	}
	result.RoundEnded = true
	return g.endRound()
}

func (g *Game) endRound() error {
	if g.Phase == PhaseFinished {
		return nil
	}
	g.resolveChopChain()
	g.Phase = PhaseFinished
	g.isFirstRound = false
	g.lastWasInstantWin = false
	g.startingPlayerID = g.finished[0]

	settled := make([]SettledPlayer, len(g.Players))
	burned := 0
	for i, p := range g.Players {
		settled[i] = SettledPlayer{ID: p.ID, Rank: p.FinishedRank, Burned: p.IsBurned, Hand: p.Hand}
		if p.IsBurned {
			burned++
		}
	}

	var payouts []Payout
	if burned > 0 {
		payouts = SettleBurn(settled, g.Bet)
	} else {
		payouts = SettleRound(settled, g.Bet)
	}
	if err := VerifyZeroSum(payouts); err != nil {
		return err
	}
	g.applyPayouts(payouts)

	for i := 0; i+1 < len(payouts); i++ {
		if payouts[i].Change < 0 && strings.HasPrefix(payouts[i].Reason, "stale cards") {
			g.roundEvents = append(g.roundEvents, RoundEvent{
				Kind:      EventStale,
				FromID:    payouts[i].PlayerID,
				ToID:      payouts[i+1].PlayerID,
				Amount:    -payouts[i].Change,
				Detail:    payouts[i].Reason,
				Timestamp: time.Now().UnixMilli(),
			})
		}
	}

	g.recordHistory()
	return nil
}

func (g *Game) applyPayouts(payouts []Payout) {
	for _, pay := range payouts {
		if p := g.player(pay.PlayerID); p != nil {
			p.Balance += pay.Change
		}
	}
	g.lastPayouts = append(g.lastPayouts, payouts...)
}

func (g *Game) recordHistory() {
	entry := newHistoryEntry(g.Bet)
	for _, p := range g.Players {
		var txs []Payout
		var total int64
		for _, pay := range g.lastPayouts {
			if pay.PlayerID == p.ID {
				txs = append(txs, pay)
				total += pay.Change
			}
		}
		entry.Players = append(entry.Players, PlayerRecord{
			ID:            p.ID,
			Name:          p.Name,
			Rank:          p.FinishedRank,
			BalanceBefore: p.Balance - total,
			BalanceAfter:  p.Balance,
			Change:        total,
			Burned:        p.IsBurned,
			Transactions:  txs,
		})
	}
	entry.Events = append(entry.Events, g.roundEvents...)

	g.history = append([]HistoryEntry{entry}, g.history...)
	if len(g.history) > HistoryLimit {
		g.history = g.history[:HistoryLimit]
	}
	g.lastPayouts = nil
	g.roundEvents = nil
}

func (g *Game) player(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) indexOf(id string) int {
	for i, p := range g.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) playerIDs() []string {
	ids := make([]string, len(g.Players))
	for i, p := range g.Players {
		ids[i] = p.ID
	}
	return ids
}

func (g *Game) isFinished(id string) bool {
	for _, f := range g.finished {
		if f == id {
			return true
		}
	}
	return false
}

// pickCards resolves card ids against a hand. It fails when any id is
// missing or duplicated.
func pickCards(hand []Card, cardIDs []string) ([]Card, bool) {
	if len(cardIDs) == 0 {
		return nil, false
	}
	byID := make(map[string]Card, len(hand))
	for _, c := range hand {
		byID[c.ID] = c
	}
	cards := make([]Card, 0, len(cardIDs))
	seen := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		c, ok := byID[id]
		if !ok || seen[id] {
			return nil, false
		}
		seen[id] = true
		cards = append(cards, c)
	}
	return cards, true
}

func containsCard(cards []Card, id string) bool {
	for _, c := range cards {
		if c.ID == id {
			return true
		}
	}
	return false
}

func removeCards(hand []Card, cardIDs []string) []Card {
	drop := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		drop[id] = true
	}
	out := make([]Card, 0, len(hand))
	for _, c := range hand {
		if !drop[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
