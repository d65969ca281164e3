// Package auth issues and verifies session tokens. A token proves that the
// bearer passed the PIN check for one specific vault within the validity
// window; it carries no other identity.
package auth

import (
	"time"

	"github.com/dmitrijs2005/snapvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims adds the vault id to the registered claim set.
type Claims struct {
	jwt.RegisteredClaims
	VaultID string
}

func GenerateToken(vaultID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		VaultID: vaultID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func GetVaultIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.VaultID, nil
}
