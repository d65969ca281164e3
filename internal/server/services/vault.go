// Package services contains server-side business logic. This file implements
// VaultService: vault lifecycle, the PIN authentication/lockout state
// machine, and asset add/remove.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/snapvault/internal/blobstore"
	"github.com/dmitrijs2005/snapvault/internal/common"
	"github.com/dmitrijs2005/snapvault/internal/dbx"
	"github.com/dmitrijs2005/snapvault/internal/logging"
	"github.com/dmitrijs2005/snapvault/internal/pinhash"
	"github.com/dmitrijs2005/snapvault/internal/server/models"
	"github.com/dmitrijs2005/snapvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/snapvault/internal/server/repositories/vaults"
	"github.com/google/uuid"
)

// AssetUpload is one incoming payload for AddAssets.
type AssetUpload struct {
	Name      string
	MimeType  string
	SizeBytes int64
	Payload   io.Reader
}

// UploadProgressFunc reports per-file upload progress as a fraction in [0, 1].
type UploadProgressFunc func(filename string, fraction float64)

// VaultService gates entry into a vault and owns all metadata mutations.
type VaultService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  blobstore.Store
	logger logging.Logger
}

func NewVaultService(db *sql.DB, repos repomanager.RepositoryManager, store blobstore.Store, logger logging.Logger) *VaultService {
	return &VaultService{
		db:     db,
		repos:  repos,
		store:  store,
		logger: logger.With("module", "vault_service"),
	}
}

// Create claims a username and provisions an empty vault behind the hashed PIN.
func (s *VaultService) Create(ctx context.Context, username, displayName, pin string, expiry models.ExpiryPolicy) (*models.Vault, error) {

	if err := validatePin(pin); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if !expiry.Valid() {
		return nil, fmt.Errorf("%w: unknown expiry policy %q", common.ErrValidation, expiry)
	}

	digest, err := pinhash.Hash(pin)
	if err != nil {
		return nil, fmt.Errorf("hashing pin: %w", err)
	}

	vault := &models.Vault{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: displayName,
		PinDigest:   digest,
		Assets:      []models.Asset{},
		Expiry:      expiry,
	}

	repo := s.repos.Vaults(s.db)
	v, err := repo.Create(ctx, vault)
	if err != nil {
		if errors.Is(err, common.ErrUsernameTaken) {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	s.logger.Info(ctx, "vault created", "vault_id", v.ID, "username", v.Username)
	return v, nil
}

// Authenticate runs the lockout state machine for one attempt.
//
// The lock is checked before the digest so a locked vault never leaks
// whether a guessed PIN would have matched. A failed check increments the
// counter and trips the permanent lock at the threshold in the same update.
func (s *VaultService) Authenticate(ctx context.Context, username, pin string) (*models.Vault, error) {

	repo := s.repos.Vaults(s.db)

	vault, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrVaultNotFound
		}
		return nil, fmt.Errorf("loading vault: %w", err)
	}

	if vault.IsLocked {
		return nil, common.ErrVaultLocked
	}

	ok, err := pinhash.Verify(pin, vault.PinDigest)
	if err != nil {
		return nil, fmt.Errorf("verifying pin: %w", err)
	}

	if !ok {
		attempts, locked, err := repo.RecordFailedAttempt(ctx, vault.ID, common.LockThreshold)
		if err != nil {
			return nil, fmt.Errorf("recording failed attempt: %w", err)
		}
		s.logger.Warn(ctx, "failed authentication", "vault_id", vault.ID, "attempts", attempts, "locked", locked)
		if locked {
			return nil, common.ErrVaultLocked
		}
		return nil, common.ErrInvalidPin
	}

	if err := repo.ResetFailedAttempts(ctx, vault.ID); err != nil {
		return nil, fmt.Errorf("resetting failed attempts: %w", err)
	}
	vault.FailedAttempts = 0

	s.logger.Info(ctx, "authenticated", "vault_id", vault.ID)
	return vault, nil
}

func (s *VaultService) GetByID(ctx context.Context, id string) (*models.Vault, error) {
	vault, err := s.repos.Vaults(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrVaultNotFound
		}
		return nil, fmt.Errorf("loading vault: %w", err)
	}
	return vault, nil
}

// AddAssets uploads each payload to the blob store and appends the new
// records to the vault's asset sequence in input order.
func (s *VaultService) AddAssets(ctx context.Context, vaultID string, uploads []AssetUpload, onProgress UploadProgressFunc) (*models.Vault, error) {

	vault, err := s.GetByID(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if vault.IsViewOnly {
		return nil, common.ErrViewOnly
	}

	assets := append([]models.Asset{}, vault.Assets...)
	for _, u := range uploads {

		var progress blobstore.ProgressFunc
		if onProgress != nil {
			name := u.Name
			progress = func(f float64) { onProgress(name, f) }
		}

		handle, err := s.store.Upload(ctx, u.Payload, u.SizeBytes, u.Name, progress)
		if err != nil {
			return nil, fmt.Errorf("uploading %q: %w", u.Name, err)
		}

		assets = append(assets, models.Asset{
			ID:           uuid.NewString(),
			Name:         u.Name,
			SizeBytes:    u.SizeBytes,
			MimeType:     u.MimeType,
			RemoteHandle: handle,
			UploadedAt:   time.Now().UTC(),
		})
	}

	updated, err := s.repos.Vaults(s.db).ReplaceAssets(ctx, vaultID, assets)
	if err != nil {
		return nil, fmt.Errorf("saving assets: %w", err)
	}

	s.logger.Info(ctx, "assets added", "vault_id", vaultID, "count", len(uploads))
	return updated, nil
}

// RemoveAsset drops one asset record. Irreversible: the remote bytes are
// orphaned, not reclaimed (no cross-store transaction exists).
func (s *VaultService) RemoveAsset(ctx context.Context, vaultID, assetID string) (*models.Vault, error) {

	vault, err := s.GetByID(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if vault.IsViewOnly {
		return nil, common.ErrViewOnly
	}

	assets := make([]models.Asset, 0, len(vault.Assets))
	found := false
	for _, a := range vault.Assets {
		if a.ID == assetID {
			found = true
			continue
		}
		assets = append(assets, a)
	}
	if !found {
		return nil, common.ErrNotFound
	}

	updated, err := s.repos.Vaults(s.db).ReplaceAssets(ctx, vaultID, assets)
	if err != nil {
		return nil, fmt.Errorf("saving assets: %w", err)
	}

	s.logger.Info(ctx, "asset removed", "vault_id", vaultID, "asset_id", assetID)
	return updated, nil
}

// ToggleViewOnly flips the view-only switch inside a transaction so two
// concurrent toggles cannot both observe the same prior state.
func (s *VaultService) ToggleViewOnly(ctx context.Context, vaultID string) (*models.Vault, error) {

	var updated *models.Vault

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Vaults(tx)

		vault, err := repo.GetByID(ctx, vaultID)
		if err != nil {
			return err
		}

		next := !vault.IsViewOnly
		updated, err = repo.UpdateSettings(ctx, vaultID, vaults.SettingsPatch{IsViewOnly: &next})
		return err
	})

	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrVaultNotFound
		}
		return nil, fmt.Errorf("toggling view-only: %w", err)
	}

	return updated, nil
}

// PanicLock is the emergency self-lock: one-way, independent of the failure
// counter, cleared only by out-of-band administrative action.
func (s *VaultService) PanicLock(ctx context.Context, vaultID string) error {

	locked := true
	_, err := s.repos.Vaults(s.db).UpdateSettings(ctx, vaultID, vaults.SettingsPatch{IsLocked: &locked})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrVaultNotFound
		}
		return fmt.Errorf("locking vault: %w", err)
	}

	s.logger.Warn(ctx, "vault panic-locked", "vault_id", vaultID)
	return nil
}

// Delete destroys the vault record. Irreversible and total.
func (s *VaultService) Delete(ctx context.Context, vaultID string) error {
	if err := s.repos.Vaults(s.db).Delete(ctx, vaultID); err != nil {
		return fmt.Errorf("deleting vault: %w", err)
	}
	s.logger.Info(ctx, "vault deleted", "vault_id", vaultID)
	return nil
}

func validatePin(pin string) error {
	if len(pin) < 4 || len(pin) > 6 {
		return fmt.Errorf("%w: pin must be 4-6 digits", common.ErrValidation)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: pin must be numeric", common.ErrValidation)
		}
	}
	return nil
}
