package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"tienlen/internal/app"
	"tienlen/internal/config"
	"tienlen/internal/domain"
	"tienlen/internal/ports"
)

// WSMessage is the JSON envelope for WebSocket messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsJoinPayload struct {
	PlayerID string `json:"playerId"`
}

type wsPlayPayload struct {
	CardIDs []string `json:"cardIds"`
}

type wsSetBetPayload struct {
	Amount int64 `json:"amount"`
}

type wsErrorPayload struct {
	Message string `json:"message"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	room, ok := s.rooms.Get(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()

	// First message must be a join from a seated player
	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "join" {
		sendWSError(ctx, conn, "first message must be a join")
		return
	}
	var join wsJoinPayload
	if err := json.Unmarshal(msg.Payload, &join); err != nil || join.PlayerID == "" {
		sendWSError(ctx, conn, "invalid join payload")
		return
	}

	playerID := join.PlayerID
	if !isSeated(room, playerID) {
		sendWSError(ctx, conn, "player is not seated in this room")
		return
	}

	send := make(chan []byte, 64)
	s.registerConn(playerID, send)
	defer s.unregisterConn(playerID, send)

	// The joiner gets their masked table view straight away.
	room.WithGame(func(g *domain.Game) error {
		sendWSMsg(send, string(app.EventState), app.StatePayload{State: g.StateView(playerID)})
		return nil
	})

	// Writer goroutine: send messages from the channel to the websocket
	go func() {
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Reader loop: handle incoming messages
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWSMsg(send, "error", wsErrorPayload{Message: "invalid message"})
			continue
		}
		s.handleWSMessage(ctx, room, playerID, send, msg)
	}

	// Player disconnected, seat stays so they can reconnect
	log.Info().Str("player", playerID).Str("room", roomID).Msg("player disconnected")
}

func isSeated(room ports.RoomPort, playerID string) bool {
	for _, id := range room.PlayerIDs() {
		if id == playerID {
			return true
		}
	}
	return false
}

func (s *Server) handleWSMessage(ctx context.Context, room ports.RoomPort, playerID string, send chan []byte, msg WSMessage) {
	switch msg.Type {
	case "start_round":
		if room.OwnerID() != playerID {
			sendWSMsg(send, "error", wsErrorPayload{Message: "only the owner can start a round"})
			return
		}
		s.applyAndDispatch(ctx, room, send, func(g *domain.Game) ([]app.Event, error) {
			return s.svc.StartRound(g)
		})

	case "play_cards":
		var play wsPlayPayload
		if err := json.Unmarshal(msg.Payload, &play); err != nil {
			sendWSMsg(send, "error", wsErrorPayload{Message: "invalid play payload"})
			return
		}
		s.applyAndDispatch(ctx, room, send, func(g *domain.Game) ([]app.Event, error) {
			return s.svc.PlayMove(g, playerID, play.CardIDs)
		})

	case "pass_turn":
		s.applyAndDispatch(ctx, room, send, func(g *domain.Game) ([]app.Event, error) {
			return s.svc.PassTurn(g, playerID), nil
		})

	case "set_bet":
		if room.OwnerID() != playerID {
			sendWSMsg(send, "error", wsErrorPayload{Message: "only the owner can change the bet"})
			return
		}
		var bet wsSetBetPayload
		if err := json.Unmarshal(msg.Payload, &bet); err != nil {
			sendWSMsg(send, "error", wsErrorPayload{Message: "invalid bet payload"})
			return
		}
		s.applyAndDispatch(ctx, room, send, func(g *domain.Game) ([]app.Event, error) {
			return s.svc.SetBet(g, bet.Amount, config.GetMaxBet())
		})

	case "decline_special_turn":
		room.WithGame(func(g *domain.Game) error {
			s.svc.DeclineSpecialTurn(g, playerID)
			return nil
		})

	case "state":
		room.WithGame(func(g *domain.Game) error {
			sendWSMsg(send, string(app.EventState), app.StatePayload{State: g.StateView(playerID)})
			return nil
		})

	case "leave":
		var events []app.Event
		room.WithGame(func(g *domain.Game) error {
			events = s.svc.Leave(g, playerID)
			return nil
		})
		s.dispatch(room, events)
		s.rooms.Leave(room.ID(), playerID)

	default:
		sendWSMsg(send, "error", wsErrorPayload{Message: "unknown message type: " + msg.Type})
	}
}

// applyAndDispatch runs one engine operation under the room lock,
// fans out its events and persists the round when one just ended.
func (s *Server) applyAndDispatch(ctx context.Context, room ports.RoomPort, send chan []byte, fn func(g *domain.Game) ([]app.Event, error)) {
	var events []app.Event
	var snapshot *domain.PersistentState
	var changes map[string]int64

	err := room.WithGame(func(g *domain.Game) error {
		evs, err := fn(g)
		if err != nil {
			return err
		}
		events = evs
		for _, ev := range evs {
			if ev.Kind != app.EventRoundEnded {
				continue
			}
			st := g.PersistableState()
			snapshot = &st
			if p, ok := ev.Payload.(app.RoundEndedPayload); ok {
				changes = p.Changes
			}
		}
		return nil
	})
	if err != nil {
		sendWSMsg(send, "error", wsErrorPayload{Message: err.Error()})
		return
	}

	s.dispatch(room, events)

	if snapshot != nil {
		s.persistRound(ctx, room.ID(), *snapshot, changes)
	}
}

// persistRound settles wallets and saves the table snapshot once a
// round has ended.
func (s *Server) persistRound(ctx context.Context, roomID string, snapshot domain.PersistentState, changes map[string]int64) {
	updates := make([]ports.WalletUpdate, 0, len(changes))
	for userID, amount := range changes {
		if amount == 0 {
			continue
		}
		updates = append(updates, ports.WalletUpdate{
			UserID: userID,
			Amount: amount,
			Metadata: map[string]interface{}{
				"room_id": roomID,
				"reason":  "round_settlement",
			},
		})
	}
	if err := s.store.UpdateBalances(ctx, updates); err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("settle round")
	}
	if err := s.store.SaveTableState(ctx, roomID, snapshot); err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("save table state")
	}
}

// dispatch fans events out to the room's connected players, honoring
// targeted recipients.
func (s *Server) dispatch(room ports.RoomPort, events []app.Event) {
	players := room.PlayerIDs()
	for _, ev := range events {
		targets := players
		if len(ev.Recipients) > 0 {
			targets = ev.Recipients
		}
		for _, pid := range targets {
			// Send under the lock so a reconnect cannot close the
			// channel mid-send. sendWSMsg never blocks.
			s.mu.Lock()
			if send, ok := s.conns[pid]; ok {
				sendWSMsg(send, string(ev.Kind), ev.Payload)
			}
			s.mu.Unlock()
		}
	}
}

// broadcastToRoom sends a single event to everyone in the room.
func (s *Server) broadcastToRoom(room ports.RoomPort, ev app.Event) {
	s.dispatch(room, []app.Event{ev})
}

// registerConn makes send the player's delivery channel. An earlier
// connection's channel is left open; its handler still sends on it and
// its goroutines wind down when that connection dies.
func (s *Server) registerConn(playerID string, send chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[playerID] = send
}

// unregisterConn drops the player's channel unless a reconnect already
// replaced it.
func (s *Server) unregisterConn(playerID string, send chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.conns[playerID]; ok && current == send {
		delete(s.conns, playerID)
		close(send)
	}
}

func sendWSMsg(send chan []byte, msgType string, payload any) {
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(WSMessage{Type: msgType, Payload: p})
	select {
	case send <- msg:
	default:
	}
}

func sendWSError(ctx context.Context, conn *websocket.Conn, message string) {
	p, _ := json.Marshal(wsErrorPayload{Message: message})
	msg, _ := json.Marshal(WSMessage{Type: "error", Payload: p})
	conn.Write(ctx, websocket.MessageText, msg)
}
