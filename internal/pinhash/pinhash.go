// Package pinhash wraps bcrypt for producing and verifying PIN digests.
//
// bcrypt is deliberately slow and embeds its salt and cost in the digest,
// which is exactly what a short numeric PIN needs: the tiny keyspace is
// compensated by an expensive, self-describing hash and the lockout policy
// enforced above this package.
package pinhash

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/snapvault/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// Cost is the fixed bcrypt work factor. Changing it only affects new
// digests; existing ones carry their own cost and keep verifying.
const Cost = 10

// Hash produces a salted bcrypt digest of the given PIN.
func Hash(pin string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(pin), Cost)
	if err != nil {
		return "", fmt.Errorf("hashing pin: %w", err)
	}
	return string(digest), nil
}

// Verify recomputes the digest using the salt and cost embedded in it and
// compares in constant time. A well-formed digest for a different PIN yields
// (false, nil); a digest bcrypt cannot parse yields ErrMalformedDigest.
func Verify(pin string, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(pin))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", common.ErrMalformedDigest, err)
}
