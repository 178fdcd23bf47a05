package content

import "errors"

var (
	// ErrNotFound indicates no content exists for the fingerprint.
	ErrNotFound = errors.New("content: not found")

	// ErrInvalidFingerprint indicates a fingerprint that is not 32 bytes.
	ErrInvalidFingerprint = errors.New("content: fingerprint must be 32 bytes")

	// ErrFingerprintMismatch indicates stored bytes no longer hash to their fingerprint.
	ErrFingerprintMismatch = errors.New("content: fingerprint mismatch")

	// ErrEmptyContent indicates an attempt to store empty content.
	ErrEmptyContent = errors.New("content: content is empty")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("content: invalid base directory")

	// ErrIOFailure indicates a file read/write error.
	ErrIOFailure = errors.New("content: I/O failure")

	// ErrBackendUnavailable indicates the IPFS node cannot be reached.
	ErrBackendUnavailable = errors.New("content: backend unavailable")
)
