// Package content stores the files that registry tokens point at. A file is
// addressed by its fingerprint, the SHA-256 of its bytes, which is what a
// mint call records on the ledger.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FingerprintSize is the length of a fingerprint in bytes.
const FingerprintSize = 32

// Fingerprint identifies content by its SHA-256 digest.
type Fingerprint [FingerprintSize]byte

// Sum returns the fingerprint of data.
func Sum(data []byte) Fingerprint { return Fingerprint(sha256.Sum256(data)) }

// String returns the lowercase hex form.
func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// ParseFingerprint decodes a 64-character hex fingerprint.
func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint
	raw, err := hex.DecodeString(s)
	if err != nil {
		return f, fmt.Errorf("%w: %w", ErrInvalidFingerprint, err)
	}
	if len(raw) != FingerprintSize {
		return f, fmt.Errorf("%w: got %d bytes", ErrInvalidFingerprint, len(raw))
	}
	copy(f[:], raw)
	return f, nil
}

// Store is an off-chain content store.
type Store interface {
	// Put stores data and returns its fingerprint. Storing the same bytes twice is a no-op.
	Put(ctx context.Context, data []byte) (Fingerprint, error)

	// Get returns the content for fp, verified against fp.
	Get(ctx context.Context, fp Fingerprint) ([]byte, error)

	// Has reports whether content for fp is stored.
	Has(ctx context.Context, fp Fingerprint) (bool, error)
}

// verify checks that data hashes to fp.
func verify(fp Fingerprint, data []byte) error {
	if Sum(data) != fp {
		return fmt.Errorf("%w: %s", ErrFingerprintMismatch, fp)
	}
	return nil
}
