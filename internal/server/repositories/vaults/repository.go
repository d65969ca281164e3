package vaults

import (
	"context"

	"github.com/dmitrijs2005/snapvault/internal/server/models"
)

// SettingsPatch is a partial update of the mutable vault settings. Nil
// fields are left untouched.
type SettingsPatch struct {
	DisplayName    *string
	IsLocked       *bool
	IsViewOnly     *bool
	FailedAttempts *int
}

// Repository is the CRUD façade over the vault row store. All operations
// are atomic at the single-vault granularity.
type Repository interface {
	Create(ctx context.Context, vault *models.Vault) (*models.Vault, error)
	GetByUsername(ctx context.Context, username string) (*models.Vault, error)
	GetByID(ctx context.Context, id string) (*models.Vault, error)
	ReplaceAssets(ctx context.Context, id string, assets []models.Asset) (*models.Vault, error)
	UpdateSettings(ctx context.Context, id string, patch SettingsPatch) (*models.Vault, error)

	// RecordFailedAttempt increments the failure counter and trips the
	// permanent lock at the threshold in a single statement, so two
	// concurrent failures cannot both observe the pre-increment counter.
	RecordFailedAttempt(ctx context.Context, id string, threshold int) (attempts int, locked bool, err error)

	// ResetFailedAttempts zeroes the counter after a successful
	// authentication. It never clears the lock.
	ResetFailedAttempts(ctx context.Context, id string) error

	Delete(ctx context.Context, id string) error
}
