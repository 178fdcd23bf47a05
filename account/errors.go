package account

import "errors"

var (
	// ErrInvalidAddress indicates an address string or byte slice is malformed.
	ErrInvalidAddress = errors.New("account: invalid address")

	// ErrChecksumMismatch indicates the address checksum does not match.
	ErrChecksumMismatch = errors.New("account: address checksum mismatch")

	// ErrNilKey indicates a required key is nil.
	ErrNilKey = errors.New("account: key is nil")

	// ErrInvalidSignature indicates a signature fails to parse or verify.
	ErrInvalidSignature = errors.New("account: invalid signature")

	// ErrInvalidPublicKey indicates public key bytes cannot be parsed.
	ErrInvalidPublicKey = errors.New("account: invalid public key")

	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("account: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("account: entropy bits must be 128 or 256")

	// ErrInvalidSeed indicates the seed is empty or invalid.
	ErrInvalidSeed = errors.New("account: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("account: key derivation failed")

	// ErrIndexOutOfRange indicates an account index is at or above the hardened boundary.
	ErrIndexOutOfRange = errors.New("account: index exceeds non-hardened maximum")

	// ErrDecryptionFailed indicates wrong password or corrupted keystore data.
	ErrDecryptionFailed = errors.New("account: seed decryption failed (wrong password or corrupted data)")

	// ErrSeedChecksumMismatch indicates seed checksum verification failed after decryption.
	ErrSeedChecksumMismatch = errors.New("account: seed checksum mismatch")

	// ErrKeystoreNotFound indicates the keystore file does not exist.
	ErrKeystoreNotFound = errors.New("account: keystore not found")
)
