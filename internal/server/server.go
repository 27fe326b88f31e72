package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"tienlen/internal/app"
	"tienlen/internal/app/onboarding"
	"tienlen/internal/domain"
	"tienlen/internal/ports"
	"tienlen/internal/storage"
)

// Server is the standalone HTTP/WebSocket front for local play and
// client development, with no Nakama runtime behind it.
type Server struct {
	mux     *http.ServeMux
	svc     *app.Service
	rooms   ports.RoomStore
	store   *storage.Store
	invites *app.InviteService // nil disables invite routes

	mu    sync.Mutex
	conns map[string]chan []byte // player id -> outbound message channel
}

// New creates a server with all routes.
func New(svc *app.Service, rooms ports.RoomStore, store *storage.Store, invites *app.InviteService) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		svc:     svc,
		rooms:   rooms,
		store:   store,
		invites: invites,
		conns:   make(map[string]chan []byte),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/rooms/join", s.handleJoin)
	s.mux.HandleFunc("GET /api/rooms/{id}", s.handleRoomInfo)
	s.mux.HandleFunc("GET /api/rooms/{id}/ws", s.handleWebSocket)
	s.mux.HandleFunc("POST /api/invites", s.handleCreateInvite)
	s.mux.HandleFunc("POST /api/invites/redeem", s.handleRedeemInvite)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type joinRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type joinResponse struct {
	RoomID  string   `json:"room_id"`
	OwnerID string   `json:"owner_id"`
	Players []string `json:"players"`
	Balance int64    `json:"balance"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if req.PlayerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "player_id required"})
		return
	}
	if req.Name == "" {
		req.Name = req.PlayerID
	}

	ctx := r.Context()

	// Fresh players get their starting gold exactly once.
	granted, err := s.store.GrantWelcomeBonusOnce(ctx, req.PlayerID, onboarding.DefaultStartingGold, map[string]interface{}{
		"reason": "starting_gold",
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if granted {
		log.Info().Str("player", req.PlayerID).Msg("granted starting gold")
	}

	balance, err := s.store.GetBalance(ctx, req.PlayerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	room, err := s.rooms.JoinOrCreate(domain.PlayerSeat{ID: req.PlayerID, Name: req.Name, Balance: balance})
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	log.Info().Str("player", req.PlayerID).Str("room", room.ID()).Msg("player joined room")
	s.broadcastToRoom(room, app.Event{
		Kind:    app.EventPlayerJoined,
		Payload: app.PlayerJoinedPayload{UserID: req.PlayerID, Name: req.Name},
	})

	writeJSON(w, http.StatusOK, joinResponse{
		RoomID:  room.ID(),
		OwnerID: room.OwnerID(),
		Players: room.PlayerIDs(),
		Balance: balance,
	})
}

type roomInfoResponse struct {
	RoomID  string   `json:"room_id"`
	OwnerID string   `json:"owner_id"`
	Players []string `json:"players"`
	Phase   string   `json:"phase"`
	Bet     int64    `json:"bet"`
}

func (s *Server) handleRoomInfo(w http.ResponseWriter, r *http.Request) {
	room, ok := s.rooms.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}

	info := roomInfoResponse{
		RoomID:  room.ID(),
		OwnerID: room.OwnerID(),
		Players: room.PlayerIDs(),
	}
	room.WithGame(func(g *domain.Game) error {
		info.Phase = string(g.Phase)
		info.Bet = g.Bet
		return nil
	})
	writeJSON(w, http.StatusOK, info)
}

type createInviteRequest struct {
	PlayerID string `json:"player_id"`
	RoomID   string `json:"room_id"`
}

type inviteResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	if s.invites == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "invites are not configured"})
		return
	}

	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	room, ok := s.rooms.Get(req.RoomID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	seated := false
	for _, id := range room.PlayerIDs() {
		if id == req.PlayerID {
			seated = true
			break
		}
	}
	if !seated {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only seated players can invite"})
		return
	}

	token, err := s.invites.GenerateToken(req.PlayerID, req.RoomID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, inviteResponse{Token: token})
}

type redeemInviteRequest struct {
	Token string `json:"token"`
}

type redeemInviteResponse struct {
	RoomID    string `json:"room_id"`
	InviterID string `json:"inviter_id"`
}

func (s *Server) handleRedeemInvite(w http.ResponseWriter, r *http.Request) {
	if s.invites == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "invites are not configured"})
		return
	}

	var req redeemInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	inviterID, roomID, err := s.invites.VerifyToken(req.Token)
	if err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
		return
	}
	if _, ok := s.rooms.Get(roomID); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	writeJSON(w, http.StatusOK, redeemInviteResponse{RoomID: roomID, InviterID: inviterID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
