package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	vaultID := "vault-123"

	tok, err := GenerateToken(vaultID, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	gotVaultID, err := GetVaultIDFromToken(tok, secret)
	if err != nil {
		t.Fatalf("GetVaultIDFromToken error: %v", err)
	}
	if gotVaultID != vaultID {
		t.Fatalf("vaultID mismatch: got %q want %q", gotVaultID, vaultID)
	}
}

func TestGetVaultIDFromToken_Expired(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("v1", []byte("secret"), -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetVaultIDFromToken(tok, []byte("secret"))
	if err == nil {
		t.Fatalf("expected error for expired token, got nil")
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected jwt.ErrTokenExpired, got %v", err)
	}
}

func TestGetVaultIDFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("v2", []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetVaultIDFromToken(tok, []byte("wrong-secret"))
	if err == nil {
		t.Fatalf("expected error for invalid signature, got nil")
	}
}

func TestGetVaultIDFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := GetVaultIDFromToken("not.a.jwt", []byte("k"))
	if err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
