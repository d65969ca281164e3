// Package blobstore implements the asset transfer client: pushing payloads
// to the remote object store and resolving stored handles to fetchable URLs.
//
// The remote hands out opaque handles that stay valid for the lifetime of an
// asset, while any URL derived from a handle rotates and expires. Callers
// must resolve a fresh URL for every hydration attempt and never persist a
// resolved URL across sessions.
package blobstore

import (
	"context"
	"io"
)

// ProgressFunc receives upload progress as a fraction in [0, 1].
type ProgressFunc func(fraction float64)

// Store transfers asset bytes to and from the remote object store.
type Store interface {
	// Upload streams the payload to the remote store and returns the durable
	// handle for it. onProgress may be nil.
	//
	// Errors: common.ErrSizeRejected when the payload exceeds the per-item
	// ceiling (non-retryable), common.ErrTransferTimeout when no
	// acknowledgment arrives in time (retryable), common.ErrTransferRefused
	// for any other non-2xx outcome.
	Upload(ctx context.Context, payload io.Reader, size int64, filename string, onProgress ProgressFunc) (string, error)

	// Resolve turns a durable handle into a time-limited fetch URL. It
	// returns common.ErrHandleUnresolved when the handle cannot currently be
	// resolved; callers treat that as retryable, not fatal to the vault.
	Resolve(ctx context.Context, handle string) (string, error)
}
