package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
)

func TestValidateAccessTokenRoundTrip(t *testing.T) {
	manager := authsvc.NewJWTManager("secret", time.Minute)
	svc := authsvc.NewService(manager)

	token, expiresAt, err := manager.GenerateAccessToken(1001)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected expiry in the future, got %v", expiresAt)
	}

	identity, err := svc.ValidateAccessToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if identity.UserID != 1001 {
		t.Fatalf("unexpected user id %d", identity.UserID)
	}
}

func TestValidateAccessTokenRejectsBadTokens(t *testing.T) {
	svc := authsvc.NewService(authsvc.NewJWTManager("secret", time.Minute))

	foreign, _, err := authsvc.NewJWTManager("other-secret", time.Minute).GenerateAccessToken(7)
	if err != nil {
		t.Fatalf("generate foreign token: %v", err)
	}

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"foreign secret": foreign,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ValidateAccessToken(context.Background(), token); !errors.Is(err, authsvc.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestValidateAccessTokenRejectsExpired(t *testing.T) {
	manager := authsvc.NewJWTManager("secret", time.Millisecond)
	token, _, err := manager.GenerateAccessToken(5)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := authsvc.NewService(manager).ValidateAccessToken(context.Background(), token); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}
