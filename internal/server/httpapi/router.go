// Package httpapi exposes the vault service over HTTP/JSON. All routes under
// /api/vaults/{vaultID} require a session token whose vault claim matches the
// URL, so one vault's token can never touch another vault.
package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/snapvault/internal/server/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg *config.Config, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public: claiming a username and authenticating.
	r.Post("/api/vaults", h.CreateVault)
	r.Post("/api/vaults/authenticate", h.Authenticate)

	// Session-scoped: the token's vault claim must match {vaultID}.
	r.Route("/api/vaults/{vaultID}", func(r chi.Router) {
		r.Use(RequireVaultSession([]byte(cfg.SecretKey)))

		r.Get("/", h.GetVault)
		r.Delete("/", h.DeleteVault)
		r.Post("/assets", h.AddAssets)
		r.Delete("/assets/{assetID}", h.RemoveAsset)
		r.Get("/assets/{assetID}/url", h.AssetURL)
		r.Post("/view-only", h.ToggleViewOnly)
		r.Post("/panic", h.PanicLock)
		r.Post("/export", h.Export)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}
