package nakama

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"
)

func inviteCtx(env map[string]string, userID string) context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, env)
	if userID != "" {
		ctx = context.WithValue(ctx, runtime.RUNTIME_CTX_USER_ID, userID)
	}
	return ctx
}

func TestRpcInvite_RoundTrip(t *testing.T) {
	env := map[string]string{
		"tienlen_invite_secret": "test-secret",
		"tienlen_invite_issuer": "tienlen-test",
	}
	ctx := inviteCtx(env, "user-1")

	payload, _ := json.Marshal(CreateInviteRequest{MatchID: "match-1"})
	out, err := rpcCreateInvite(ctx, noopLogger{}, nil, nil, string(payload))
	if err != nil {
		t.Fatalf("rpcCreateInvite failed: %v", err)
	}

	created := CreateInviteResponse{}
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("Failed to unmarshal create response: %v", err)
	}
	if created.Token == "" {
		t.Fatalf("Expected a token in the response")
	}

	redeemPayload, _ := json.Marshal(RedeemInviteRequest{Token: created.Token})
	out, err = rpcRedeemInvite(ctx, noopLogger{}, nil, nil, string(redeemPayload))
	if err != nil {
		t.Fatalf("rpcRedeemInvite failed: %v", err)
	}

	redeemed := RedeemInviteResponse{}
	if err := json.Unmarshal([]byte(out), &redeemed); err != nil {
		t.Fatalf("Failed to unmarshal redeem response: %v", err)
	}
	if redeemed.MatchID != "match-1" {
		t.Fatalf("MatchID = %q, want %q", redeemed.MatchID, "match-1")
	}
	if redeemed.InviterID != "user-1" {
		t.Fatalf("InviterID = %q, want %q", redeemed.InviterID, "user-1")
	}
}

func TestRpcInvite_RequiresConfiguration(t *testing.T) {
	ctx := inviteCtx(map[string]string{}, "user-1")

	payload, _ := json.Marshal(CreateInviteRequest{MatchID: "match-1"})
	if _, err := rpcCreateInvite(ctx, noopLogger{}, nil, nil, string(payload)); err == nil {
		t.Fatalf("Expected an error when no invite secret is configured")
	}
}

func TestRpcInvite_RejectsMissingMatchID(t *testing.T) {
	env := map[string]string{"tienlen_invite_secret": "test-secret"}
	ctx := inviteCtx(env, "user-1")

	payload, _ := json.Marshal(CreateInviteRequest{})
	if _, err := rpcCreateInvite(ctx, noopLogger{}, nil, nil, string(payload)); err == nil {
		t.Fatalf("Expected an error for an empty match_id")
	}
}

func TestRpcInvite_RejectsTamperedToken(t *testing.T) {
	env := map[string]string{"tienlen_invite_secret": "test-secret"}
	ctx := inviteCtx(env, "user-1")

	payload, _ := json.Marshal(CreateInviteRequest{MatchID: "match-1"})
	out, err := rpcCreateInvite(ctx, noopLogger{}, nil, nil, string(payload))
	if err != nil {
		t.Fatalf("rpcCreateInvite failed: %v", err)
	}
	created := CreateInviteResponse{}
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("Failed to unmarshal create response: %v", err)
	}

	foreignCtx := inviteCtx(map[string]string{"tienlen_invite_secret": "other-secret"}, "user-1")
	redeemPayload, _ := json.Marshal(RedeemInviteRequest{Token: created.Token})
	if _, err := rpcRedeemInvite(foreignCtx, noopLogger{}, nil, nil, string(redeemPayload)); err == nil {
		t.Fatalf("Expected a signature error for a token minted with another secret")
	}
}
