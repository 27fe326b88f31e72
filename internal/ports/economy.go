package ports

import "context"

// WalletUpdate represents a single gold change for a user.
type WalletUpdate struct {
	UserID   string
	Amount   int64
	Metadata map[string]interface{}
}

// EconomyPort defines the interface for managing player gold.
type EconomyPort interface {
	// GetBalance retrieves the current gold balance for a user.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// UpdateBalances applies multiple wallet changes atomically. The
	// round settlements are zero-sum, so a batch either lands whole or
	// not at all.
	UpdateBalances(ctx context.Context, updates []WalletUpdate) error
}
