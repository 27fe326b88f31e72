package room

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tienlen/internal/domain"
	"tienlen/internal/ports"
)

// Room is one live table. The mutex serializes all access to the
// engine state; the transport layer drives it through WithGame.
type Room struct {
	id      string
	ownerID string

	mu   sync.Mutex
	game *domain.Game
}

func (r *Room) ID() string { return r.id }

func (r *Room) OwnerID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ownerID
}

func (r *Room) PlayerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.game.Players))
	for i, p := range r.game.Players {
		ids[i] = p.ID
	}
	return ids
}

func (r *Room) WithGame(fn func(*domain.Game) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.game)
}

func (r *Room) seated(playerID string) bool {
	for _, p := range r.game.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// GameFactory builds a fresh engine for a new table.
type GameFactory func(seats []domain.PlayerSeat) *domain.Game

// Registry is an in-memory ports.RoomStore.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	maxSeats int
	newGame  GameFactory
}

var _ ports.RoomStore = (*Registry)(nil)

// NewRegistry builds a registry. maxSeats bounds every table; newGame
// supplies each new table's engine (bet tier and rng live there).
func NewRegistry(maxSeats int, newGame GameFactory) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		maxSeats: maxSeats,
		newGame:  newGame,
	}
}

// JoinOrCreate seats the player in an open table with space, creating a
// new one when none qualifies. A player already seated somewhere gets
// their existing table back.
func (r *Registry) JoinOrCreate(seat domain.PlayerSeat) (ports.RoomPort, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rm := range r.rooms {
		rm.mu.Lock()
		if rm.seated(seat.ID) {
			rm.mu.Unlock()
			return rm, nil
		}
		rm.mu.Unlock()
	}

	for _, rm := range r.rooms {
		rm.mu.Lock()
		if rm.game.Phase == domain.PhaseWaiting && len(rm.game.Players) < r.maxSeats {
			err := rm.game.AddPlayer(seat)
			rm.mu.Unlock()
			if err != nil {
				return nil, fmt.Errorf("join room: %w", err)
			}
			return rm, nil
		}
		rm.mu.Unlock()
	}

	rm := &Room{
		id:      uuid.NewString(),
		ownerID: seat.ID,
		game:    r.newGame([]domain.PlayerSeat{seat}),
	}
	r.rooms[rm.id] = rm
	return rm, nil
}

// Get returns the table with the given id.
func (r *Registry) Get(roomID string) (ports.RoomPort, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	return rm, true
}

// Leave removes the player from the table, transferring ownership when
// the owner leaves and reaping the table once it is empty.
func (r *Registry) Leave(roomID, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}

	rm.mu.Lock()
	rm.game.RemovePlayer(playerID)
	empty := len(rm.game.Players) == 0
	if !empty && rm.ownerID == playerID {
		rm.ownerID = rm.game.Players[0].ID
	}
	rm.mu.Unlock()

	if empty {
		delete(r.rooms, roomID)
	}
}

// Count reports the number of live tables.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
