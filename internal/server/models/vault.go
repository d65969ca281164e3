// Package models defines server-side data models persisted in the database.
package models

import "time"

// ExpiryPolicy is a retention hint for external sweep tooling. The server
// never deletes expired vaults itself.
type ExpiryPolicy string

const (
	ExpiryOneDay     ExpiryPolicy = "24h"
	ExpirySevenDays  ExpiryPolicy = "7d"
	ExpiryThirtyDays ExpiryPolicy = "30d"
	ExpiryNever      ExpiryPolicy = "never"
)

// Valid reports whether p is one of the known policies.
func (p ExpiryPolicy) Valid() bool {
	switch p {
	case ExpiryOneDay, ExpirySevenDays, ExpiryThirtyDays, ExpiryNever:
		return true
	}
	return false
}

// Vault is the unit of ownership: identity, access gate, and asset index.
type Vault struct {
	ID          string
	Username    string
	DisplayName string
	// PinDigest is the bcrypt digest of the vault PIN. Never stored or
	// compared in plaintext.
	PinDigest string
	// Assets is the insertion-ordered asset index. The sequence is replaced
	// wholesale on every mutation (last writer wins at the adapter).
	Assets         []Asset
	CreatedAt      time.Time
	Expiry         ExpiryPolicy
	FailedAttempts int
	IsLocked       bool
	IsViewOnly     bool
}

// Asset describes one stored object. The bytes live in the remote blob
// store; RemoteHandle is the only durable reference to them.
type Asset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	// RemoteHandle is write-once. Replacing an asset means removing the old
	// record and creating a new one.
	RemoteHandle string    `json:"remote_handle"`
	UploadedAt   time.Time `json:"uploaded_at"`
	// CachedLocator is a best-effort short-lived fetch URL from a previous
	// hydration. It must be revalidated before use; the remote rotates the
	// URLs it derives from a handle.
	CachedLocator string `json:"cached_locator,omitempty"`
}
