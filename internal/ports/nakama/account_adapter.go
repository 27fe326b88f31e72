package nakama

import (
	"context"

	"tienlen/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// AccountAdapter implements ports.AccountPort against the Nakama account API.
type AccountAdapter struct {
	nk runtime.NakamaModule
}

func NewAccountAdapter(nk runtime.NakamaModule) *AccountAdapter {
	return &AccountAdapter{nk: nk}
}

// UpdateProfile sets the username and display name on the account.
// Other profile fields are left untouched.
func (a *AccountAdapter) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	return a.nk.AccountUpdateId(ctx, userID, username, nil, displayName, "", "", "", "")
}

var _ ports.AccountPort = (*AccountAdapter)(nil)
