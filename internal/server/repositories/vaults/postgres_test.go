package vaults

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/snapvault/internal/common"
	"github.com/dmitrijs2005/snapvault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func vaultRow(v *models.Vault, assets string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "display_name", "pin_digest", "assets",
		"created_at", "expiry", "failed_attempts", "is_locked", "is_view_only",
	}).AddRow(v.ID, v.Username, v.DisplayName, v.PinDigest, []byte(assets),
		v.CreatedAt, string(v.Expiry), v.FailedAttempts, v.IsLocked, v.IsViewOnly)
}

func TestCreate_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO vaults")).
		WithArgs("v1", "ghost", "Ghost Vault", "$2a$10$x", []byte("[]"), "never").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	repo := NewPostgresRepository(db)
	v, err := repo.Create(context.Background(), &models.Vault{
		ID: "v1", Username: "ghost", DisplayName: "Ghost Vault",
		PinDigest: "$2a$10$x", Expiry: models.ExpiryNever,
	})
	require.NoError(t, err)
	require.Equal(t, now, v.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UsernameTaken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO vaults")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := NewPostgresRepository(db)
	_, err := repo.Create(context.Background(), &models.Vault{
		ID: "v1", Username: "ghost", Expiry: models.ExpiryNever,
	})
	require.ErrorIs(t, err, common.ErrUsernameTaken)
}

func TestGetByUsername_Found(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	want := &models.Vault{ID: "v1", Username: "ghost", PinDigest: "d", Expiry: models.ExpiryOneDay}
	assets := `[{"id":"a1","name":"cat.jpg","size_bytes":5,"mime_type":"image/jpeg","remote_handle":"h1","uploaded_at":"2026-01-02T03:04:05Z"}]`

	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(username) = lower($1)")).
		WithArgs("Ghost").
		WillReturnRows(vaultRow(want, assets))

	repo := NewPostgresRepository(db)
	v, err := repo.GetByUsername(context.Background(), "Ghost")
	require.NoError(t, err)
	require.Equal(t, "v1", v.ID)
	require.Equal(t, models.ExpiryOneDay, v.Expiry)
	require.Len(t, v.Assets, 1)
	require.Equal(t, "h1", v.Assets[0].RemoteHandle)
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewPostgresRepository(db)
	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestReplaceAssets(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	want := &models.Vault{ID: "v1", Username: "ghost", Expiry: models.ExpiryNever}
	assets := []models.Asset{{ID: "a1", Name: "cat.jpg", RemoteHandle: "h1"}}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE vaults SET assets = $2")).
		WithArgs("v1", sqlmock.AnyArg()).
		WillReturnRows(vaultRow(want, `[{"id":"a1","name":"cat.jpg","remote_handle":"h1"}]`))

	repo := NewPostgresRepository(db)
	v, err := repo.ReplaceAssets(context.Background(), "v1", assets)
	require.NoError(t, err)
	require.Len(t, v.Assets, 1)
}

func TestUpdateSettings_PartialPatch(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	locked := true
	want := &models.Vault{ID: "v1", Username: "ghost", Expiry: models.ExpiryNever, IsLocked: true}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE vaults SET is_locked = $2 WHERE id = $1")).
		WithArgs("v1", true).
		WillReturnRows(vaultRow(want, `[]`))

	repo := NewPostgresRepository(db)
	v, err := repo.UpdateSettings(context.Background(), "v1", SettingsPatch{IsLocked: &locked})
	require.NoError(t, err)
	require.True(t, v.IsLocked)
}

func TestUpdateSettings_EmptyPatchFallsBackToGet(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	want := &models.Vault{ID: "v1", Username: "ghost", Expiry: models.ExpiryNever}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs("v1").
		WillReturnRows(vaultRow(want, `[]`))

	repo := NewPostgresRepository(db)
	v, err := repo.UpdateSettings(context.Background(), "v1", SettingsPatch{})
	require.NoError(t, err)
	require.Equal(t, "v1", v.ID)
}

func TestRecordFailedAttempt_BelowThreshold(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SET failed_attempts = failed_attempts + 1")).
		WithArgs("v1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "is_locked"}).AddRow(4, false))

	repo := NewPostgresRepository(db)
	attempts, locked, err := repo.RecordFailedAttempt(context.Background(), "v1", 5)
	require.NoError(t, err)
	require.Equal(t, 4, attempts)
	require.False(t, locked)
}

func TestRecordFailedAttempt_TripsLock(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SET failed_attempts = failed_attempts + 1")).
		WithArgs("v1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "is_locked"}).AddRow(5, true))

	repo := NewPostgresRepository(db)
	attempts, locked, err := repo.RecordFailedAttempt(context.Background(), "v1", 5)
	require.NoError(t, err)
	require.Equal(t, 5, attempts)
	require.True(t, locked)
}

func TestResetFailedAttempts(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vaults SET failed_attempts = 0")).
		WithArgs("v1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	require.NoError(t, repo.ResetFailedAttempts(context.Background(), "v1"))
}

func TestDelete(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM vaults WHERE id = $1")).
		WithArgs("v1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	require.NoError(t, repo.Delete(context.Background(), "v1"))
}

func TestScanVault_BadAssetsJSON(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	want := &models.Vault{ID: "v1", Username: "ghost", Expiry: models.ExpiryNever}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs("v1").
		WillReturnRows(vaultRow(want, `{not json`))

	repo := NewPostgresRepository(db)
	_, err := repo.GetByID(context.Background(), "v1")
	require.Error(t, err)
	require.False(t, errors.Is(err, common.ErrNotFound))
}
