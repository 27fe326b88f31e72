package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tienlen/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	startingGoldCollection = "player_meta"
	startingGoldKey        = "starting_gold_v1"
)

// WelcomeBonusAdapter grants the one-time starting gold. A conditional
// storage write serves as the idempotency marker: the marker and the
// wallet credit go through a single MultiUpdate, and a marker that
// already exists rejects the write instead of paying twice.
type WelcomeBonusAdapter struct {
	nk runtime.NakamaModule
}

func NewWelcomeBonusAdapter(nk runtime.NakamaModule) *WelcomeBonusAdapter {
	return &WelcomeBonusAdapter{nk: nk}
}

// GrantWelcomeBonusOnce credits amount gold to the user exactly once.
// It returns false with no error when the grant already happened.
func (a *WelcomeBonusAdapter) GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("userID is required")
	}
	if amount <= 0 {
		return false, fmt.Errorf("amount must be positive, got %d", amount)
	}

	marker, err := json.Marshal(map[string]interface{}{
		"amount":     amount,
		"granted_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("encode grant marker: %w", err)
	}

	// Version "*" makes the write fail when the marker already exists.
	writes := []*runtime.StorageWrite{{
		Collection:      startingGoldCollection,
		Key:             startingGoldKey,
		UserID:          userID,
		Value:           string(marker),
		Version:         "*",
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}}
	credits := []*runtime.WalletUpdate{{
		UserID:    userID,
		Changeset: map[string]int64{walletKeyGold: amount},
		Metadata:  metadata,
	}}

	if _, _, err := a.nk.MultiUpdate(ctx, nil, writes, nil, credits, true); err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return false, nil
		}
		return false, fmt.Errorf("grant starting gold: %w", err)
	}
	return true, nil
}

var _ ports.WelcomeBonusPort = (*WelcomeBonusAdapter)(nil)
