package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// InviteService mints and verifies signed room-invite tokens. A token
// binds one user to one room for a limited window, so invite links
// cannot be replayed against other rooms or other accounts.
type InviteService struct {
	secret string
	issuer string
	ttl    time.Duration
}

const defaultInviteTTL = 15 * time.Minute

func NewInviteService(secret, issuer string, ttl time.Duration) *InviteService {
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}
	return &InviteService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// GenerateToken mints an HS256 invite token for the given user and room.
func (s *InviteService) GenerateToken(userID, roomID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("invite service is nil")
	}
	if userID == "" {
		return "", fmt.Errorf("user is required")
	}
	if roomID == "" {
		return "", fmt.Errorf("room is required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("invite config is incomplete")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  userID,
		"room": roomID,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyToken checks an invite token's signature, issuer and expiry, and
// returns the user and room it was minted for.
func (s *InviteService) VerifyToken(tokenString string) (userID, roomID string, err error) {
	if s == nil || s.secret == "" {
		return "", "", fmt.Errorf("invite config is incomplete")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse invite token: %w", err)
	}
	if !token.Valid {
		return "", "", fmt.Errorf("invite token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invite token has no claims")
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return "", "", fmt.Errorf("invite token issuer mismatch")
	}
	userID, _ = claims["sub"].(string)
	roomID, _ = claims["room"].(string)
	if userID == "" || roomID == "" {
		return "", "", fmt.Errorf("invite token is missing subject or room")
	}
	return userID, roomID, nil
}
