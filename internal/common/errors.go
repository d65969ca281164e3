// Package common defines shared constants and sentinel errors used across
// SnapVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username taken")

	// Authentication outcomes. Each is distinguishable so a UI can give
	// precise feedback without leaking whether a username exists.
	ErrVaultNotFound = errors.New("vault not found")
	ErrInvalidPin    = errors.New("invalid pin")
	ErrVaultLocked   = errors.New("vault locked")

	// Digest errors.
	ErrMalformedDigest = errors.New("malformed digest")

	// Transfer outcomes. Only ErrTransferTimeout is caller-retryable.
	ErrSizeRejected     = errors.New("size rejected")
	ErrTransferTimeout  = errors.New("transfer timeout")
	ErrTransferRefused  = errors.New("transfer refused")
	ErrHandleUnresolved = errors.New("handle unresolved")

	// Export and policy errors.
	ErrExportEmpty = errors.New("export empty")
	ErrViewOnly    = errors.New("vault is view-only")

	// Generic flow control.
	ErrValidation   = errors.New("validation error")
	ErrInternal     = errors.New("internal error")
	ErrInvalidToken = errors.New("invalid token")
)

// LockThreshold is the number of consecutive failed PIN checks after which a
// vault locks itself permanently.
const LockThreshold = 5
