package account

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"fmt"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

const (
	// AddressSize is the length of a raw account address.
	AddressSize = 32

	// ChecksumSize is the number of checksum bytes appended to the text form.
	ChecksumSize = 4
)

// addressEncoding is base32 without padding; 36 bytes encode to 58 characters.
var addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Address identifies an account on the ledger.
// It is SHA256 of the account's compressed secp256k1 public key.
type Address [AddressSize]byte

// ZeroAddress is the all-zero address. No key hashes to it.
var ZeroAddress Address

// AddressFromPublicKey derives the address owned by pub.
func AddressFromPublicKey(pub *ec.PublicKey) (Address, error) {
	if pub == nil {
		return ZeroAddress, fmt.Errorf("%w: public key", ErrNilKey)
	}
	return Address(sha256.Sum256(pub.Compressed())), nil
}

// AddressFromBytes copies a 32-byte slice into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress decodes the checksummed text form produced by String.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := addressEncoding.DecodeString(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return a, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(raw) != AddressSize+ChecksumSize {
		return a, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(raw))
	}
	copy(a[:], raw[:AddressSize])
	if !bytes.Equal(raw[AddressSize:], a.checksum()) {
		return ZeroAddress, ErrChecksumMismatch
	}
	return a, nil
}

// checksum returns the last ChecksumSize bytes of SHA-512/256(address).
func (a Address) checksum() []byte {
	sum := sha512.Sum512_256(a[:])
	return sum[len(sum)-ChecksumSize:]
}

// String returns the checksummed base32 form.
func (a Address) String() string {
	buf := make([]byte, 0, AddressSize+ChecksumSize)
	buf = append(buf, a[:]...)
	buf = append(buf, a.checksum()...)
	return addressEncoding.EncodeToString(buf)
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressSize)
	copy(out, a[:])
	return out
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
