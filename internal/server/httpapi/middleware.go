package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/snapvault/internal/server/auth"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const vaultContextKey contextKey = "vault_id"

// RequireVaultSession verifies the bearer token and pins it to the vault in
// the URL. A valid token for a different vault is rejected the same way as no
// token at all.
func RequireVaultSession(secretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := r.Header.Get("Authorization")
			if !strings.HasPrefix(bearer, "Bearer ") {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimPrefix(bearer, "Bearer ")

			vaultID, err := auth.GetVaultIDFromToken(tokenStr, secretKey)
			if err != nil || vaultID == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			if vaultID != chi.URLParam(r, "vaultID") {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), vaultContextKey, vaultID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VaultIDFromContext returns the authenticated vault id, or "" outside a
// session-scoped route.
func VaultIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(vaultContextKey).(string)
	return id
}
