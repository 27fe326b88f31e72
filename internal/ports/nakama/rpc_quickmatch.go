package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"tienlen/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickMatchRequest is the optional client payload. CreateNew skips the
// listing lookup and always opens a fresh table.
type QuickMatchRequest struct {
	CreateNew bool `json:"create_new"`
}

// QuickMatchResponse tells the client which match to join.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcCreateInvite, rpcCreateInvite); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcRedeemInvite, rpcRedeemInvite)
}

// rpcQuickMatch seats the caller at an open lobby-phase table or opens a
// new one when none has space. Seat assignment itself happens in
// MatchJoin, so two racing callers can land at the same table safely.
func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req QuickMatchRequest
	if payload != "" {
		// A malformed payload falls back to the default lookup.
		_ = json.Unmarshal([]byte(payload), &req)
	}

	if !req.CreateNew {
		query := "+label.open:T label.game:tienlen label.phase:lobby"
		minSize := 1
		maxSize := app.MaxPlayersPerTable - 1 // at least one seat free

		matches, err := nk.MatchList(ctx, 10, true, "", &minSize, &maxSize, query)
		if err != nil {
			logger.Error("rpcQuickMatch: MatchList failed: %v", err)
			return "", err
		}
		if len(matches) > 0 {
			return quickMatchReply(matches[0].MatchId, false)
		}
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameTienLen, map[string]interface{}{})
	if err != nil {
		logger.Error("rpcQuickMatch: MatchCreate failed: %v", err)
		return "", err
	}
	return quickMatchReply(matchID, true)
}

func quickMatchReply(matchID string, isNew bool) (string, error) {
	b, err := json.Marshal(QuickMatchResponse{MatchID: matchID, IsNew: isNew})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
