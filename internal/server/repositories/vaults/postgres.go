package vaults

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/snapvault/internal/common"
	"github.com/dmitrijs2005/snapvault/internal/dbx"
	"github.com/dmitrijs2005/snapvault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

const vaultColumns = `id, username, display_name, pin_digest, assets, created_at, expiry, failed_attempts, is_locked, is_view_only`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, vault *models.Vault) (*models.Vault, error) {

	assets, err := marshalAssets(vault.Assets)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO vaults (id, username, display_name, pin_digest, assets, expiry)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		vault.ID, vault.Username, vault.DisplayName, vault.PinDigest, assets, string(vault.Expiry)).
		Scan(&vault.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return vault, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE lower(username) = lower($1)`
	return r.scanVault(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE id = $1`
	return r.scanVault(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ReplaceAssets(ctx context.Context, id string, assets []models.Asset) (*models.Vault, error) {

	encoded, err := marshalAssets(assets)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE vaults SET assets = $2
		 WHERE id = $1
		 RETURNING ` + vaultColumns

	return r.scanVault(r.db.QueryRowContext(ctx, query, id, encoded))
}

func (r *PostgresRepository) UpdateSettings(ctx context.Context, id string, patch SettingsPatch) (*models.Vault, error) {

	sets := make([]string, 0, 4)
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.DisplayName != nil {
		add("display_name", *patch.DisplayName)
	}
	if patch.IsLocked != nil {
		add("is_locked", *patch.IsLocked)
	}
	if patch.IsViewOnly != nil {
		add("is_view_only", *patch.IsViewOnly)
	}
	if patch.FailedAttempts != nil {
		add("failed_attempts", *patch.FailedAttempts)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	query := `UPDATE vaults SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + vaultColumns

	return r.scanVault(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) RecordFailedAttempt(ctx context.Context, id string, threshold int) (int, bool, error) {

	query :=
		`UPDATE vaults
		 SET failed_attempts = failed_attempts + 1,
		     is_locked = is_locked OR failed_attempts + 1 >= $2
		 WHERE id = $1
		 RETURNING failed_attempts, is_locked
		 `

	var attempts int
	var locked bool
	err := r.db.QueryRowContext(ctx, query, id, threshold).Scan(&attempts, &locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, common.ErrNotFound
		}
		return 0, false, fmt.Errorf("db error: %w", err)
	}

	return attempts, locked, nil
}

func (r *PostgresRepository) ResetFailedAttempts(ctx context.Context, id string) error {

	query := `UPDATE vaults SET failed_attempts = 0 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {

	query := `DELETE FROM vaults WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanVault(row *sql.Row) (*models.Vault, error) {

	vault := &models.Vault{}
	var assets []byte
	var expiry string

	err := row.Scan(&vault.ID, &vault.Username, &vault.DisplayName, &vault.PinDigest,
		&assets, &vault.CreatedAt, &expiry, &vault.FailedAttempts, &vault.IsLocked, &vault.IsViewOnly)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	vault.Expiry = models.ExpiryPolicy(expiry)

	if err := json.Unmarshal(assets, &vault.Assets); err != nil {
		return nil, fmt.Errorf("decoding assets: %w", err)
	}

	return vault, nil
}

func marshalAssets(assets []models.Asset) ([]byte, error) {
	if assets == nil {
		assets = []models.Asset{}
	}
	encoded, err := json.Marshal(assets)
	if err != nil {
		return nil, fmt.Errorf("encoding assets: %w", err)
	}
	return encoded, nil
}
