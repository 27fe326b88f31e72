package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"tienlen/internal/app"
	"tienlen/internal/app/onboarding"
	"tienlen/internal/bot"
	"tienlen/internal/config"
	"tienlen/internal/domain"
	"tienlen/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	// Extra seconds granted on the first turn of a round so clients can
	// finish the deal animation before the clock starts.
	gameStartTurnTimerBonusSeconds = 5

	defaultTurnDurationSeconds = 16
)

// matchLabel is indexed by Nakama and drives the quick-match listing query.
type matchLabel struct {
	Open  bool   `json:"open"`
	Seats int    `json:"seats"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats     [4]string                   `json:"seats"`      // Array of user IDs, empty string means seat is empty
	OwnerSeat int                         `json:"owner_seat"` // Seat index of the match owner
	Tick      int64                       `json:"tick"`       // Current tick of the match for turn-based logic
	Presences map[string]runtime.Presence `json:"-"`          // Map UserId -> Presence for targeted messaging
	App       *app.Service                `json:"-"`          // TienLen app service with game logic
	Game      *domain.Game                `json:"-"`          // Table state, carried across rounds for rotation and balances

	TurnSecondsRemaining int64  `json:"turn_seconds_remaining"`
	LastTurnUserID       string `json:"last_turn_user_id"`

	BotsEnabled          bool                  `json:"bots_enabled"`            // Whether AI players are allowed
	BotMinDelay          int                   `json:"bot_min_delay"`           // Min seconds a bot waits
	BotMaxDelay          int                   `json:"bot_max_delay"`           // Max seconds a bot waits
	BotAutoFillDelay     int                   `json:"bot_auto_fill_delay"`     // Seconds to wait before auto-filling with bots
	BotWaitUntil         int64                 `json:"bot_wait_until"`          // Tick when the bot should act
	LastSinglePlayerTick int64                 `json:"last_single_player_tick"` // Tick when a single player started waiting
	Bots                 map[string]*bot.Agent `json:"-"`                       // Active bot agents

	Economy ports.EconomyPort  `json:"-"` // Interface to Nakama wallet
	Invites *app.InviteService `json:"-"` // Optional, nil when no invite secret is configured
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !isBotUserId(seat) {
			count++
		}
	}
	return count
}

// roundInProgress reports whether a dealt round is still being played out.
func (ms *MatchState) roundInProgress() bool {
	return ms.Game != nil && ms.Game.Phase == domain.PhasePlaying
}

// isBotUserId reports whether the given user id represents a bot seat.
func isBotUserId(userId string) bool {
	return bot.IsBot(userId)
}

// isHumanSeat reports whether the seat index belongs to a human player.
func isHumanSeat(seats []string, seatIndex int) bool {
	if seatIndex < 0 || seatIndex >= len(seats) {
		return false
	}
	userId := seats[seatIndex]
	return userId != "" && !isBotUserId(userId)
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1 if none exist.
func findFirstHumanSeat(seats []string) int {
	for i, userId := range seats {
		if userId != "" && !isBotUserId(userId) {
			return i
		}
	}
	return -1
}

// shouldTerminateNoHumans returns true when there are no humans in the match.
func shouldTerminateNoHumans(seats []string) bool {
	return findFirstHumanSeat(seats) == -1
}

// newBotAgent builds the agent that plays a bot seat.
func newBotAgent(userID string) *bot.Agent {
	return &bot.Agent{
		ID:       userID,
		Name:     bot.GetBotDisplayName(userID),
		Strategy: &bot.LowestLegalBot{},
	}
}

func newMatchHandler() runtime.Match {
	return &matchHandler{}
}

type matchHandler struct{}

// Client request payloads.

type PlayCardsRequest struct {
	CardIDs []string `json:"card_ids"`
}

type SetBetRequest struct {
	Amount int64 `json:"amount"`
}

// PlayerState is one seat entry of the lobby snapshot.
type PlayerState struct {
	UserID         string `json:"user_id"`
	Seat           int    `json:"seat"`
	IsOwner        bool   `json:"is_owner"`
	CardsRemaining int    `json:"cards_remaining"`
	DisplayName    string `json:"display_name"`
	Balance        int64  `json:"balance"`
	IsBot          bool   `json:"is_bot"`
}

// MatchStateSnapshot is broadcast whenever the seating changes.
type MatchStateSnapshot struct {
	Seats     []string       `json:"seats"`
	OwnerSeat int            `json:"owner_seat"`
	Tick      int64          `json:"tick"`
	Bet       int64          `json:"bet"`
	Players   []*PlayerState `json:"players"`
}

// GameErrorEvent is sent privately to the player whose request was rejected.
type GameErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	// Load bot identities from data folder
	if err := bot.LoadIdentities("data/bot_identities.json"); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}

	// Load betting configuration
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	state := &MatchState{
		Tick:      time.Now().Unix(),
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(nil),
		OwnerSeat: -1,
		Bots:      make(map[string]*bot.Agent),
		Economy:   NewEconomyAdapter(nk),
	}

	// Read environment variables for bot and invite configuration
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["tienlen_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["tienlen_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["tienlen_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["tienlen_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = i
		}
	}
	state.Invites = inviteServiceFromEnv(env)

	// Defaults if not set
	if state.BotMinDelay == 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay == 0 {
		state.BotMaxDelay = 3
	}
	if state.BotAutoFillDelay == 0 {
		state.BotAutoFillDelay = 5
	}

	labelBytes, err := json.Marshal(&matchLabel{
		Open:  true,
		Seats: state.GetOpenSeatsCount(),
		Game:  "tienlen",
		Phase: "lobby",
	})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // turn timers and bot delays count in seconds
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// An invite token, when presented, must have been minted for this match.
	if token, present := metadata["invite_token"]; present && matchState.Invites != nil {
		_, roomID, err := matchState.Invites.VerifyToken(token)
		if err != nil {
			logger.Warn("MatchJoinAttempt: Rejecting %s with bad invite token: %v", presence.GetUserId(), err)
			return state, false, "invalid invite"
		}
		matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
		if roomID != matchID {
			return state, false, "invite is for another match"
		}
	}

	// Allow join if there is an empty seat OR a bot to replace (between rounds)
	if matchState.GetOpenSeatsCount() <= 0 {
		hasBot := false
		if !matchState.roundInProgress() {
			for _, seat := range matchState.Seats {
				if isBotUserId(seat) {
					hasBot = true
					break
				}
			}
		}
		if !hasBot {
			return state, false, "Match full"
		}
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		// Store presence
		matchState.Presences[p.GetUserId()] = p

		// Assign seat: Try empty seats first, then bots (between rounds)
		assigned := false
		for i, seatUserId := range matchState.Seats {
			if seatUserId == "" {
				matchState.Seats[i] = p.GetUserId()
				assigned = true
				break
			}
		}

		if !assigned && !matchState.roundInProgress() {
			for i, seatUserId := range matchState.Seats {
				if isBotUserId(seatUserId) {
					logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", seatUserId, p.GetUserId(), i)
					delete(matchState.Bots, seatUserId)
					if matchState.Game != nil {
						matchState.Game.RemovePlayer(seatUserId)
					}
					matchState.Seats[i] = p.GetUserId()
					assigned = true
					break
				}
			}
		}

		if !assigned {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", p.GetUserId())
			continue
		}
	}

	// Ensure owner seat is assigned to a human player only.
	if !isHumanSeat(matchState.Seats[:], matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats[:])
		if matchState.OwnerSeat >= 0 {
			logger.Debug("MatchJoin: Owner set to human seat %d.", matchState.OwnerSeat)
		}
	}

	// Update match label
	mh.updateLabel(matchState, dispatcher, logger)

	// Broadcast the current match state to all presences after join.
	mh.broadcastMatchState(ctx, matchState, dispatcher, logger)

	// A reconnecting player gets their masked table view back.
	if matchState.Game != nil {
		for _, p := range presences {
			mh.sendStateSnapshot(matchState, dispatcher, logger, p.GetUserId())
		}
	}

	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	ownerLeft := false
	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		for i, seatUserId := range matchState.Seats {
			if seatUserId == p.GetUserId() {
				matchState.Seats[i] = ""
				logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), i)

				if matchState.OwnerSeat == i {
					ownerLeft = true
				}
				break
			}
		}

		if matchState.Game != nil {
			for _, ev := range matchState.App.Leave(matchState.Game, p.GetUserId()) {
				mh.broadcastEvent(ctx, matchState, dispatcher, logger, ev)
			}
		}
	}

	newOwnerSeat := findFirstHumanSeat(matchState.Seats[:])
	if newOwnerSeat != matchState.OwnerSeat {
		matchState.OwnerSeat = newOwnerSeat
		if newOwnerSeat >= 0 {
			logger.Debug("MatchLeave: Owner set to human seat %d.", newOwnerSeat)
		} else if ownerLeft {
			logger.Debug("MatchLeave: Owner left and no human owner is available.")
		}
	}

	if shouldTerminateNoHumans(matchState.Seats[:]) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	// Handle incoming messages
	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartRound:
			mh.handleStartRound(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCards:
			mh.handlePlayCards(ctx, matchState, dispatcher, logger, msg)
		case OpPassTurn:
			mh.handlePassTurn(ctx, matchState, dispatcher, logger, msg)
		case OpSetBet:
			mh.handleSetBet(ctx, matchState, dispatcher, logger, msg)
		case OpDeclineSpecialTurn:
			mh.handleDeclineSpecialTurn(ctx, matchState, dispatcher, logger, msg)
		case OpRequestState:
			mh.sendStateSnapshot(matchState, dispatcher, logger, msg.GetUserId())
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	// Turn timer for human players
	mh.processTurnTimer(ctx, matchState, dispatcher, logger)

	// AI Logic
	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	return matchState
}

// processTurnTimer counts down the active human's turn and forces a move
// when the clock expires. A bot seat runs on its own delay instead.
func (mh *matchHandler) processTurnTimer(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if !state.roundInProgress() {
		state.LastTurnUserID = ""
		return
	}

	currentUserID := state.Game.Players[state.Game.CurrentTurn].ID
	if currentUserID != state.LastTurnUserID {
		state.LastTurnUserID = currentUserID
		mh.resetTurnSecondsRemainingWithBonus(state, logger, 0)
		return
	}

	if isBotUserId(currentUserID) {
		return
	}

	state.TurnSecondsRemaining--
	if state.TurnSecondsRemaining > 0 {
		return
	}

	logger.Info("processTurnTimer: User %s timed out, forcing a move.", currentUserID)
	mh.forceMove(ctx, state, dispatcher, logger, currentUserID)
	mh.resetTurnSecondsRemainingWithBonus(state, logger, 0)
}

// forceMove passes for a timed-out player, or plays the cheapest legal
// lead when the player owns the trick and passing would stall the table.
func (mh *matchHandler) forceMove(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	if state.Game.LastMove != nil {
		for _, ev := range state.App.PassTurn(state.Game, userID) {
			mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
		}
		return
	}

	agent := &bot.Agent{ID: userID, Strategy: &bot.LowestLegalBot{}}
	move, err := agent.Play(state.Game)
	if err != nil || move.Pass {
		logger.Warn("forceMove: No lead found for %s: %v", userID, err)
		return
	}
	events, err := state.App.PlayMove(state.Game, userID, cardIDsOf(move.Cards))
	if err != nil {
		logger.Error("forceMove: Forced lead rejected for %s: %v", userID, err)
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) resetTurnSecondsRemainingWithBonus(state *MatchState, logger runtime.Logger, bonusSeconds int) {
	duration := defaultTurnDurationSeconds
	if cfg := config.GetGameConfig(); cfg != nil && cfg.TurnDurationSeconds > 0 {
		duration = cfg.TurnDurationSeconds
	}
	state.TurnSecondsRemaining = int64(duration + bonusSeconds)
	logger.Debug("Turn timer reset to %d seconds.", state.TurnSecondsRemaining)
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Auto-fill lobby with bots if there's only one human player after delay
	if !state.roundInProgress() {
		humanCount := state.GetHumanPlayerCount()
		if humanCount == 1 {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
				logger.Debug("processBots: Single player detected, starting auto-fill timer.")
			}

			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				added := false
				for i, seat := range state.Seats {
					if seat == "" {
						identity := bot.GetBotIdentity(i)
						botID := identity.UserID
						state.Seats[i] = botID
						state.Bots[botID] = newBotAgent(botID)

						logger.Info("processBots: Added bot %s (%s) to seat %d", identity.Username, botID, i)
						added = true
					}
				}
				if added {
					mh.updateLabel(state, dispatcher, logger)
					mh.broadcastMatchState(ctx, state, dispatcher, logger)
				}
				// Reset timer so it doesn't keep "adding" every tick (though seats are full now)
				state.LastSinglePlayerTick = 0
			}
		} else {
			// Reset timer if 0 or >1 humans
			state.LastSinglePlayerTick = 0
		}
	}

	if !state.roundInProgress() {
		return
	}

	// 2. A bot holding the four-pair interrupt slot always declines it.
	if slot := state.Game.SpecialTurnFor; slot != "" && isBotUserId(slot) {
		state.App.DeclineSpecialTurn(state.Game, slot)
	}

	// 3. Handle bot turns in-game
	currentUserID := state.Game.Players[state.Game.CurrentTurn].ID
	if !isBotUserId(currentUserID) {
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		// Initialize random delay
		delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: Bot %s will act at tick %d (current %d)", currentUserID, state.BotWaitUntil, state.Tick)
		return
	}

	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0 // Reset for next turn

	agent, exists := state.Bots[currentUserID]
	if !exists {
		agent = newBotAgent(currentUserID)
		state.Bots[currentUserID] = agent
	}

	move, err := agent.Play(state.Game)
	if err != nil {
		logger.Error("processBots: Bot %s failed to calculate move: %v", currentUserID, err)
		return
	}

	if move.Pass {
		for _, ev := range state.App.PassTurn(state.Game, currentUserID) {
			mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
		}
		return
	}

	events, err := state.App.PlayMove(state.Game, currentUserID, cardIDsOf(move.Cards))
	if err != nil {
		logger.Error("processBots: Bot %s move rejected: %v", currentUserID, err)
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func cardIDsOf(cards []domain.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func (mh *matchHandler) broadcastMatchState(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	var playerStates []*PlayerState
	for i, userId := range state.Seats {
		if userId == "" {
			continue
		}

		displayName := userId
		if p, exists := state.Presences[userId]; exists {
			displayName = p.GetUsername()
		} else if name := bot.GetBotDisplayName(userId); name != "" {
			displayName = name
		}

		cardsRemaining := 0
		if state.Game != nil {
			for _, p := range state.Game.Players {
				if p.ID == userId {
					cardsRemaining = len(p.Hand)
					break
				}
			}
		}

		playerStates = append(playerStates, &PlayerState{
			UserID:         userId,
			Seat:           i,
			IsOwner:        i == state.OwnerSeat,
			CardsRemaining: cardsRemaining,
			DisplayName:    displayName,
			Balance:        mh.lookupBalance(ctx, state, logger, userId),
			IsBot:          isBotUserId(userId),
		})
	}

	bet := int64(0)
	if state.Game != nil {
		bet = state.Game.Bet
	}

	snapshot := &MatchStateSnapshot{
		Seats:     state.Seats[:],
		OwnerSeat: state.OwnerSeat,
		Tick:      state.Tick,
		Bet:       bet,
		Players:   playerStates,
	}
	bytes, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error("broadcastMatchState: Failed to marshal snapshot: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpPlayerJoined, bytes, nil, nil, true)
}

// lookupBalance reads the wallet balance for a seat. A bot with no wallet
// falls back to the onboarding grant so the table math stays plausible.
func (mh *matchHandler) lookupBalance(ctx context.Context, state *MatchState, logger runtime.Logger, userID string) int64 {
	if state.Economy == nil {
		return 0
	}
	balance, err := state.Economy.GetBalance(ctx, userID)
	if err != nil {
		if isBotUserId(userID) {
			return onboarding.DefaultStartingGold
		}
		logger.Warn("lookupBalance: Failed for %s: %v", userID, err)
		return 0
	}
	return balance
}

// rebuildGame reseats the table from the current wallet balances while
// carrying over the round rotation state from the previous game.
func (mh *matchHandler) rebuildGame(ctx context.Context, state *MatchState, logger runtime.Logger) {
	seats := make([]domain.PlayerSeat, 0, len(state.Seats))
	for _, userId := range state.Seats {
		if userId == "" {
			continue
		}

		name := userId
		if p, exists := state.Presences[userId]; exists {
			name = p.GetUsername()
		} else if botName := bot.GetBotDisplayName(userId); botName != "" {
			name = botName
		}

		seats = append(seats, domain.PlayerSeat{
			ID:      userId,
			Name:    name,
			Balance: mh.lookupBalance(ctx, state, logger, userId),
		})
	}

	bet := config.GetBaseBet("")
	if state.Game != nil {
		bet = state.Game.Bet
	}

	game := state.App.NewTable(seats, bet)
	if state.Game != nil {
		game.RestoreState(state.Game.PersistableState())
	}
	state.Game = game
}

func (mh *matchHandler) seatOf(state *MatchState, userID string) int {
	for i, seatUserId := range state.Seats {
		if seatUserId == userID {
			return i
		}
	}
	return -1
}

func (mh *matchHandler) handleStartRound(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := mh.seatOf(state, senderID)

	logger.Info("StartRound: Request received from %s (seat=%d, owner_seat=%d, occupied=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOccupiedSeatCount())

	if senderSeat != state.OwnerSeat {
		logger.Warn("StartRound: User %s tried to start round but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		return
	}

	if state.roundInProgress() {
		logger.Warn("StartRound: Round already in progress.")
		return
	}

	activeCount := state.GetOccupiedSeatCount()
	if activeCount < app.MinPlayersToStartRound {
		logger.Warn("StartRound: Cannot start with %d players. Need at least %d.", activeCount, app.MinPlayersToStartRound)
		return
	}

	// Reseat from wallets so settlements applied after the last round are
	// reflected at the table.
	mh.rebuildGame(ctx, state, logger)

	events, err := state.App.StartRound(state.Game)
	if err != nil {
		logger.Error("StartRound: Failed to start round: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	mh.resetTurnSecondsRemainingWithBonus(state, logger, gameStartTurnTimerBonusSeconds)
	if state.roundInProgress() {
		state.LastTurnUserID = state.Game.Players[state.Game.CurrentTurn].ID
	}

	// Update match label to reflect playing state
	mh.updateLabel(state, dispatcher, logger)

	// Broadcast resulting events
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}

	logger.Info("StartRound: Round started with %d players.", activeCount)
}

func (mh *matchHandler) handlePlayCards(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if state.Game == nil {
		logger.Warn("handlePlayCards: Round not started.")
		return
	}

	request := &PlayCardsRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Error("handlePlayCards: Failed to unmarshal PlayCardsRequest: %v", err)
		return
	}

	events, err := state.App.PlayMove(state.Game, senderID, request.CardIDs)
	if err != nil {
		logger.Warn("handlePlayCards: User %s failed to play cards: %v. Requested: %v", senderID, err, request.CardIDs)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handlePassTurn(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if state.Game == nil {
		logger.Warn("handlePassTurn: Round not started.")
		return
	}

	for _, ev := range state.App.PassTurn(state.Game, senderID) {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handleSetBet(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if mh.seatOf(state, senderID) != state.OwnerSeat {
		logger.Warn("handleSetBet: User %s is not the owner.", senderID)
		return
	}
	request := &SetBetRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Error("handleSetBet: Failed to unmarshal SetBetRequest: %v", err)
		return
	}

	if state.Game == nil {
		mh.rebuildGame(ctx, state, logger)
	}

	events, err := state.App.SetBet(state.Game, request.Amount, config.GetMaxBet())
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handleDeclineSpecialTurn(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		return
	}
	state.App.DeclineSpecialTurn(state.Game, msg.GetUserId())
}

// sendStateSnapshot sends the requesting player their masked table view.
func (mh *matchHandler) sendStateSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	if state.Game == nil {
		return
	}
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}

	bytes, err := json.Marshal(app.StatePayload{State: state.Game.StateView(userID)})
	if err != nil {
		logger.Error("sendStateSnapshot: Failed to marshal state for %s: %v", userID, err)
		return
	}
	dispatcher.BroadcastMessage(OpState, bytes, []runtime.Presence{presence}, nil, true)
}

// opCodeFor maps an app event kind to its wire opcode.
func opCodeFor(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventPlayerJoined:
		return OpPlayerJoined, true
	case app.EventPlayerLeft:
		return OpPlayerLeft, true
	case app.EventBetChanged:
		return OpBetChanged, true
	case app.EventRoundStarted:
		return OpRoundStarted, true
	case app.EventHandDealt:
		return OpHandDealt, true
	case app.EventMovePlayed:
		return OpMovePlayed, true
	case app.EventTurnPassed:
		return OpTurnPassed, true
	case app.EventChop:
		return OpChop, true
	case app.EventSpecialTurn:
		return OpSpecialTurn, true
	case app.EventTrickReset:
		return OpTrickReset, true
	case app.EventInstantWin:
		return OpInstantWin, true
	case app.EventRoundEnded:
		return OpRoundEnded, true
	case app.EventState:
		return OpState, true
	default:
		return 0, false
	}
}

// broadcastEvent converts an app event into a JSON broadcast, honoring
// targeted recipients and applying round-end side effects.
func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := opCodeFor(ev.Kind)
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	if ev.Kind == app.EventRoundEnded {
		mh.settleRound(ctx, state, dispatcher, logger, ev)
	}

	bytes, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// If we had intended recipients but none are connected (e.g. they are bots),
		// we MUST NOT broadcast to everyone else.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

// settleRound applies the zero-sum balance changes to Nakama wallets and
// flips the match label back to the lobby phase.
func (mh *matchHandler) settleRound(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	payload, ok := ev.Payload.(app.RoundEndedPayload)
	if ok && state.Economy != nil {
		updates := make([]ports.WalletUpdate, 0, len(payload.Changes))
		for userID, amount := range payload.Changes {
			// Bots play with house money
			if isBotUserId(userID) || amount == 0 {
				continue
			}
			updates = append(updates, ports.WalletUpdate{
				UserID: userID,
				Amount: amount,
				Metadata: map[string]interface{}{
					"match_id": ctx.Value(runtime.RUNTIME_CTX_MATCH_ID),
					"reason":   "round_settlement",
				},
			})
		}
		if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
			logger.Error("Failed to update balances: %v", err)
		}
	}

	state.LastTurnUserID = ""
	mh.updateLabel(state, dispatcher, logger)
}

// sendError sends a GameErrorEvent to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	bytes, err := json.Marshal(&GameErrorEvent{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal GameErrorEvent: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := "lobby"
	if state.roundInProgress() {
		phase = "playing"
	}

	open := state.GetOpenSeatsCount()
	labelBytes, err := json.Marshal(&matchLabel{
		Open:  open > 0 && phase == "lobby",
		Seats: open,
		Game:  "tienlen",
		Phase: phase,
	})
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
