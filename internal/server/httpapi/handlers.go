package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/snapvault/internal/common"
	"github.com/dmitrijs2005/snapvault/internal/logging"
	"github.com/dmitrijs2005/snapvault/internal/server/auth"
	"github.com/dmitrijs2005/snapvault/internal/server/config"
	"github.com/dmitrijs2005/snapvault/internal/server/models"
	"github.com/dmitrijs2005/snapvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// Handler carries the services behind the HTTP surface.
type Handler struct {
	vaults *services.VaultService
	export *services.ExportService
	cfg    *config.Config
	logger logging.Logger
}

func NewHandler(vaults *services.VaultService, export *services.ExportService, cfg *config.Config, logger logging.Logger) *Handler {
	return &Handler{
		vaults: vaults,
		export: export,
		cfg:    cfg,
		logger: logger.With("module", "httpapi"),
	}
}

type assetResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// vaultResponse is the public view of a vault. Digests and remote handles
// never leave the server.
type vaultResponse struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	DisplayName    string          `json:"display_name,omitempty"`
	Assets         []assetResponse `json:"assets"`
	CreatedAt      time.Time       `json:"created_at"`
	Expiry         string          `json:"expiry"`
	FailedAttempts int             `json:"failed_attempts"`
	IsLocked       bool            `json:"is_locked"`
	IsViewOnly     bool            `json:"is_view_only"`
}

func toVaultResponse(v *models.Vault) *vaultResponse {
	assets := make([]assetResponse, 0, len(v.Assets))
	for _, a := range v.Assets {
		assets = append(assets, assetResponse{
			ID:         a.ID,
			Name:       a.Name,
			SizeBytes:  a.SizeBytes,
			MimeType:   a.MimeType,
			UploadedAt: a.UploadedAt,
		})
	}
	return &vaultResponse{
		ID:             v.ID,
		Username:       v.Username,
		DisplayName:    v.DisplayName,
		Assets:         assets,
		CreatedAt:      v.CreatedAt,
		Expiry:         string(v.Expiry),
		FailedAttempts: v.FailedAttempts,
		IsLocked:       v.IsLocked,
		IsViewOnly:     v.IsViewOnly,
	}
}

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// writeServiceError maps sentinel errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, common.ErrUsernameTaken):
		jsonError(w, "username taken", http.StatusConflict)
	case errors.Is(err, common.ErrVaultNotFound), errors.Is(err, common.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, common.ErrInvalidPin):
		jsonError(w, "invalid pin", http.StatusUnauthorized)
	case errors.Is(err, common.ErrVaultLocked):
		jsonError(w, "vault locked", http.StatusLocked)
	case errors.Is(err, common.ErrViewOnly):
		jsonError(w, "vault is view-only", http.StatusForbidden)
	case errors.Is(err, common.ErrSizeRejected):
		jsonError(w, "file too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, common.ErrTransferTimeout):
		jsonError(w, "transfer timed out", http.StatusGatewayTimeout)
	case errors.Is(err, common.ErrTransferRefused), errors.Is(err, common.ErrHandleUnresolved),
		errors.Is(err, common.ErrExportEmpty):
		jsonError(w, err.Error(), http.StatusBadGateway)
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

type createVaultRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Pin         string `json:"pin"`
	Expiry      string `json:"expiry"`
}

type sessionResponse struct {
	Token string         `json:"token"`
	Vault *vaultResponse `json:"vault"`
}

func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, vault *models.Vault, status int) {
	token, err := auth.GenerateToken(vault.ID, []byte(h.cfg.SecretKey), h.cfg.SessionTokenValidityDuration)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	jsonResponse(w, sessionResponse{Token: token, Vault: toVaultResponse(vault)}, status)
}

// CreateVault claims a username and opens a session for the fresh vault.
func (h *Handler) CreateVault(w http.ResponseWriter, r *http.Request) {
	var req createVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	expiry := models.ExpiryPolicy(req.Expiry)
	if req.Expiry == "" {
		expiry = models.ExpiryNever
	}

	vault, err := h.vaults.Create(r.Context(), req.Username, req.DisplayName, req.Pin, expiry)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.issueSession(w, r, vault, http.StatusCreated)
}

type authenticateRequest struct {
	Username string `json:"username"`
	Pin      string `json:"pin"`
}

func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	vault, err := h.vaults.Authenticate(r.Context(), req.Username, req.Pin)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.issueSession(w, r, vault, http.StatusOK)
}

func (h *Handler) GetVault(w http.ResponseWriter, r *http.Request) {
	vault, err := h.vaults.GetByID(r.Context(), chi.URLParam(r, "vaultID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	jsonResponse(w, toVaultResponse(vault), http.StatusOK)
}

func (h *Handler) DeleteVault(w http.ResponseWriter, r *http.Request) {
	if err := h.vaults.Delete(r.Context(), chi.URLParam(r, "vaultID")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAssets accepts a multipart form with one or more "files" parts and
// uploads each to the blob store.
func (h *Handler) AddAssets(w http.ResponseWriter, r *http.Request) {
	// Parts stream to a temp file past this threshold; the per-file size
	// ceiling is enforced by the blob store.
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "no files provided", http.StatusBadRequest)
		return
	}

	uploads := make([]services.AssetUpload, 0, len(files))
	var open []interface{ Close() error }
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()

	for _, hdr := range files {
		f, err := hdr.Open()
		if err != nil {
			jsonError(w, "invalid multipart body", http.StatusBadRequest)
			return
		}
		open = append(open, f)
		uploads = append(uploads, services.AssetUpload{
			Name:      hdr.Filename,
			MimeType:  hdr.Header.Get("Content-Type"),
			SizeBytes: hdr.Size,
			Payload:   f,
		})
	}

	vault, err := h.vaults.AddAssets(r.Context(), chi.URLParam(r, "vaultID"), uploads, nil)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	jsonResponse(w, toVaultResponse(vault), http.StatusOK)
}

func (h *Handler) RemoveAsset(w http.ResponseWriter, r *http.Request) {
	vault, err := h.vaults.RemoveAsset(r.Context(), chi.URLParam(r, "vaultID"), chi.URLParam(r, "assetID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	jsonResponse(w, toVaultResponse(vault), http.StatusOK)
}

// AssetURL returns a short-lived fetch URL for one asset. The URL rotates;
// callers should request a fresh one rather than persist it.
func (h *Handler) AssetURL(w http.ResponseWriter, r *http.Request) {
	vault, err := h.vaults.GetByID(r.Context(), chi.URLParam(r, "vaultID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	url, err := h.export.Hydrate(r.Context(), vault, chi.URLParam(r, "assetID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	jsonResponse(w, map[string]string{"url": url}, http.StatusOK)
}

func (h *Handler) ToggleViewOnly(w http.ResponseWriter, r *http.Request) {
	vault, err := h.vaults.ToggleViewOnly(r.Context(), chi.URLParam(r, "vaultID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	jsonResponse(w, toVaultResponse(vault), http.StatusOK)
}

func (h *Handler) PanicLock(w http.ResponseWriter, r *http.Request) {
	if err := h.vaults.PanicLock(r.Context(), chi.URLParam(r, "vaultID")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exportRequest struct {
	AssetIDs []string `json:"asset_ids"`
}

// Export streams a zip of the selected assets (all of them when asset_ids is
// absent). Assets that failed to hydrate are listed in the X-Failed-Assets
// header so the client can retry just those.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	vault, err := h.vaults.GetByID(r.Context(), chi.URLParam(r, "vaultID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.export.Export(r.Context(), vault, req.AssetIDs, nil)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	if len(res.FailedAssetIDs) > 0 {
		w.Header().Set("X-Failed-Assets", strings.Join(res.FailedAssetIDs, ","))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Archive)
}
