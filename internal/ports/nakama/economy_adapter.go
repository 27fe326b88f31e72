package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"tienlen/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// walletKeyGold is the single currency the game settles in.
const walletKeyGold = "gold"

// EconomyAdapter implements ports.EconomyPort on top of the Nakama wallet.
type EconomyAdapter struct {
	nk runtime.NakamaModule
}

func NewEconomyAdapter(nk runtime.NakamaModule) *EconomyAdapter {
	return &EconomyAdapter{nk: nk}
}

// GetBalance reads the user's gold balance. A wallet without a gold
// entry reads as zero.
func (a *EconomyAdapter) GetBalance(ctx context.Context, userID string) (int64, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get account %s: %w", userID, err)
	}

	var wallet map[string]int64
	if err := json.Unmarshal([]byte(account.Wallet), &wallet); err != nil {
		return 0, fmt.Errorf("decode wallet for %s: %w", userID, err)
	}
	return wallet[walletKeyGold], nil
}

// UpdateBalances applies a settlement as one batched wallet update so a
// zero-sum round either lands for everyone or fails as a unit.
func (a *EconomyAdapter) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	batch := make([]*runtime.WalletUpdate, 0, len(updates))
	for _, u := range updates {
		if u.Amount == 0 {
			continue
		}
		batch = append(batch, &runtime.WalletUpdate{
			UserID:    u.UserID,
			Changeset: map[string]int64{walletKeyGold: u.Amount},
			Metadata:  u.Metadata,
		})
	}
	if len(batch) == 0 {
		return nil
	}

	if _, err := a.nk.WalletsUpdate(ctx, batch, true); err != nil {
		return fmt.Errorf("apply wallet settlement: %w", err)
	}
	return nil
}

var _ ports.EconomyPort = (*EconomyAdapter)(nil)
