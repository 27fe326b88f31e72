package ports

import "tienlen/internal/domain"

// RoomPort is a handle to one live table. WithGame serializes access to
// the table's engine state; callers must not retain the *Game outside
// the callback.
type RoomPort interface {
	ID() string
	OwnerID() string
	PlayerIDs() []string
	WithGame(fn func(*domain.Game) error) error
}

// RoomStore tracks live tables behind an injected dependency instead of
// a process-global map. Implementations must be safe for concurrent use.
type RoomStore interface {
	// JoinOrCreate seats the player in an open table with space,
	// creating a new one when none qualifies.
	JoinOrCreate(seat domain.PlayerSeat) (RoomPort, error)

	// Get returns the table with the given id.
	Get(roomID string) (RoomPort, bool)

	// Leave removes the player from the table. Empty tables are reaped.
	Leave(roomID, playerID string)

	// Count reports the number of live tables.
	Count() int
}
