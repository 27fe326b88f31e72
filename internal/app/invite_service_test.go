package app

import (
	"fmt"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

func TestInviteServiceRoundTrip(t *testing.T) {
	secret := "test-secret"
	issuer := "issuer"
	user := "user123"
	room := "room-456"

	svc := NewInviteService(secret, issuer, 0)
	tokenString, err := svc.GenerateToken(user, room)
	if err != nil {
		t.Fatalf("generate invite token error: %v", err)
	}

	gotUser, gotRoom, err := svc.VerifyToken(tokenString)
	if err != nil {
		t.Fatalf("verify invite token error: %v", err)
	}
	if gotUser != user {
		t.Fatalf("user = %s, want %s", gotUser, user)
	}
	if gotRoom != room {
		t.Fatalf("room = %s, want %s", gotRoom, room)
	}
}

func TestInviteServiceClaims(t *testing.T) {
	secret := "test-secret"
	issuer := "issuer"

	svc := NewInviteService(secret, issuer, time.Hour)
	tokenString, err := svc.GenerateToken("user123", "room-456")
	if err != nil {
		t.Fatalf("generate invite token error: %v", err)
	}

	claims := parseInviteClaims(t, tokenString, secret)
	if got := stringClaim(t, claims, "iss"); got != issuer {
		t.Fatalf("iss = %s, want %s", got, issuer)
	}
	if got := stringClaim(t, claims, "sub"); got != "user123" {
		t.Fatalf("sub = %s, want user123", got)
	}
	if got := stringClaim(t, claims, "room"); got != "room-456" {
		t.Fatalf("room = %s, want room-456", got)
	}
}

func TestInviteServiceGenerateTokenRequiresUserAndRoom(t *testing.T) {
	svc := NewInviteService("secret", "issuer", 0)
	if _, err := svc.GenerateToken("", "room"); err == nil {
		t.Fatal("expected error for empty user")
	}
	if _, err := svc.GenerateToken("user", ""); err == nil {
		t.Fatal("expected error for empty room")
	}
}

func TestInviteServiceGenerateTokenRequiresConfig(t *testing.T) {
	svc := NewInviteService("", "issuer", 0)
	if _, err := svc.GenerateToken("user", "room"); err == nil {
		t.Fatal("expected error for missing invite config")
	}
}

func TestInviteServiceVerifyRejectsForeignSignature(t *testing.T) {
	minted, err := NewInviteService("secret-a", "issuer", 0).GenerateToken("user", "room")
	if err != nil {
		t.Fatalf("generate invite token error: %v", err)
	}
	if _, _, err := NewInviteService("secret-b", "issuer", 0).VerifyToken(minted); err == nil {
		t.Fatal("expected error for wrong signing secret")
	}
}

func TestInviteServiceVerifyRejectsIssuerMismatch(t *testing.T) {
	minted, err := NewInviteService("secret", "issuer-a", 0).GenerateToken("user", "room")
	if err != nil {
		t.Fatalf("generate invite token error: %v", err)
	}
	if _, _, err := NewInviteService("secret", "issuer-b", 0).VerifyToken(minted); err == nil {
		t.Fatal("expected error for issuer mismatch")
	}
}

func parseInviteClaims(t *testing.T, tokenString, secret string) jwt.MapClaims {
	t.Helper()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token error: %v", err)
	}
	if !token.Valid {
		t.Fatal("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not map claims")
	}
	return claims
}

func stringClaim(t *testing.T, claims jwt.MapClaims, name string) string {
	t.Helper()
	value, ok := claims[name]
	if !ok {
		t.Fatalf("missing %s claim", name)
	}
	str, ok := value.(string)
	if !ok {
		t.Fatalf("%s claim is not a string", name)
	}
	return str
}
