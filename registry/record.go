package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mednft/libmednft-go/account"
)

const (
	// FingerprintSize is the length of a content fingerprint.
	FingerprintSize = 32

	// recordSep separates fingerprint and owner in a stored record.
	recordSep = ':'

	// RecordSize is the packed length of a TokenRecord.
	RecordSize = FingerprintSize + 1 + account.AddressSize
)

// Global state keys.
var (
	KeyUnitaryPrice = []byte("unitaryPrice")
	KeyTokenCount   = []byte("nftCount")
	recordPrefix    = []byte("nft_")
)

// TokenRecord is the metadata kept for one token.
type TokenRecord struct {
	Fingerprint [FingerprintSize]byte
	Owner       account.Address
}

// RecordKey returns "nft_" || BE64(id).
func RecordKey(id uint64) []byte {
	key := make([]byte, 0, len(recordPrefix)+8)
	key = append(key, recordPrefix...)
	return binary.BigEndian.AppendUint64(key, id)
}

// Encode packs the record as fingerprint || ":" || owner.
func (r TokenRecord) Encode() []byte {
	buf := make([]byte, 0, RecordSize)
	buf = append(buf, r.Fingerprint[:]...)
	buf = append(buf, recordSep)
	return append(buf, r.Owner[:]...)
}

// DecodeRecord unpacks a stored record.
func DecodeRecord(data []byte) (TokenRecord, error) {
	var r TokenRecord
	if len(data) != RecordSize {
		return r, fmt.Errorf("%w: %d bytes, want %d", ErrCorruptRecord, len(data), RecordSize)
	}
	if data[FingerprintSize] != recordSep {
		return r, fmt.Errorf("%w: missing separator", ErrCorruptRecord)
	}
	copy(r.Fingerprint[:], data[:FingerprintSize])
	copy(r.Owner[:], data[FingerprintSize+1:])
	return r, nil
}

// WithOwner returns a copy of r owned by owner. The fingerprint is kept.
func (r TokenRecord) WithOwner(owner account.Address) TokenRecord {
	r.Owner = owner
	return r
}

// itob encodes n as 8 big-endian bytes.
func itob(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

// btoi decodes a big-endian token id argument of 1 to 8 bytes.
func btoi(b []byte) (uint64, error) {
	if len(b) == 0 || len(b) > 8 {
		return 0, fmt.Errorf("%w: token id must be 1-8 bytes, got %d", ErrInvalidArguments, len(b))
	}
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:]), nil
}

// EncodeTokenID is the argument form of a token id.
func EncodeTokenID(id uint64) []byte { return itob(id) }

// ParseFingerprint copies a 32-byte fingerprint argument.
func ParseFingerprint(b []byte) ([FingerprintSize]byte, error) {
	var fp [FingerprintSize]byte
	if len(b) != FingerprintSize {
		return fp, fmt.Errorf("%w: fingerprint must be %d bytes, got %d", ErrInvalidArguments, FingerprintSize, len(b))
	}
	copy(fp[:], b)
	return fp, nil
}

func isRecordKey(key []byte) bool {
	return len(key) == len(recordPrefix)+8 && bytes.HasPrefix(key, recordPrefix)
}
