package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"tienlen/internal/app/onboarding"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// AfterAuthenticateDevice onboards freshly created accounts: a friendly
// profile name plus the one-time starting gold grant.
func AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	if !out.Created {
		return nil
	}

	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		// Fall back to the uid claim of the freshly issued session token.
		resolvedID, err := userIDFromSessionToken(out.Token)
		if err != nil {
			logger.Error("AfterAuthenticateDevice: Could not resolve user id: %v", err)
			return err
		}
		userID = resolvedID
	}

	logger.Info("Onboarding new user %s", userID)

	service := onboarding.NewService(NewAccountAdapter(nk), NewWelcomeBonusAdapter(nk), nil)
	result, err := service.OnboardNewUser(ctx, userID)
	if result.ProfileUpdateErr != nil {
		logger.Warn("AfterAuthenticateDevice: Failed to update profile for user %s: %v", userID, result.ProfileUpdateErr)
	}
	if !result.StartingGoldGranted {
		logger.Info("AfterAuthenticateDevice: Starting gold already granted for user %s", userID)
	}
	if err != nil {
		logger.Error("AfterAuthenticateDevice: Onboarding failed for user %s: %v", userID, err)
		return err
	}
	return nil
}

// userIDFromSessionToken pulls the uid claim out of a Nakama session
// token. The token was minted by this same server moments ago, so the
// claims are read without signature verification.
func userIDFromSessionToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	uid, _ := claims["uid"].(string)
	if uid == "" {
		return "", fmt.Errorf("session token has no uid claim")
	}
	return uid, nil
}
