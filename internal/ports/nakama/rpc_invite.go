package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"tienlen/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// CreateInviteRequest asks for an invite token to the given match.
type CreateInviteRequest struct {
	MatchID string `json:"match_id"`
}

// CreateInviteResponse carries the signed invite token.
type CreateInviteResponse struct {
	Token string `json:"token"`
}

// RedeemInviteRequest resolves a token back to its match.
type RedeemInviteRequest struct {
	Token string `json:"token"`
}

// RedeemInviteResponse names the match the token was minted for.
type RedeemInviteResponse struct {
	MatchID   string `json:"match_id"`
	InviterID string `json:"inviter_id"`
}

// inviteServiceFromEnv builds the invite token service from runtime env
// vars, or returns nil when no signing secret is configured.
func inviteServiceFromEnv(env map[string]string) *app.InviteService {
	secret := env["tienlen_invite_secret"]
	if secret == "" {
		return nil
	}
	issuer := env["tienlen_invite_issuer"]
	if issuer == "" {
		issuer = "tienlen"
	}

	ttl := time.Duration(0)
	if val, ok := env["tienlen_invite_ttl_sec"]; ok {
		if d, err := time.ParseDuration(val + "s"); err == nil {
			ttl = d
		}
	}

	return app.NewInviteService(secret, issuer, ttl)
}

func inviteServiceFromCtx(ctx context.Context) (*app.InviteService, error) {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	svc := inviteServiceFromEnv(env)
	if svc == nil {
		return nil, errors.New("invites are not configured")
	}
	return svc, nil
}

func rpcCreateInvite(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	svc, err := inviteServiceFromCtx(ctx)
	if err != nil {
		return "", err
	}

	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", errors.New("missing user id")
	}

	request := &CreateInviteRequest{}
	if err := json.Unmarshal([]byte(payload), request); err != nil {
		return "", err
	}
	if request.MatchID == "" {
		return "", errors.New("match_id is required")
	}

	token, err := svc.GenerateToken(userID, request.MatchID)
	if err != nil {
		logger.Error("rpcCreateInvite: Failed to sign token: %v", err)
		return "", err
	}

	b, _ := json.Marshal(CreateInviteResponse{Token: token})
	return string(b), nil
}

func rpcRedeemInvite(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	svc, err := inviteServiceFromCtx(ctx)
	if err != nil {
		return "", err
	}

	request := &RedeemInviteRequest{}
	if err := json.Unmarshal([]byte(payload), request); err != nil {
		return "", err
	}

	inviterID, matchID, err := svc.VerifyToken(request.Token)
	if err != nil {
		return "", err
	}

	b, _ := json.Marshal(RedeemInviteResponse{MatchID: matchID, InviterID: inviterID})
	return string(b), nil
}
