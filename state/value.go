package state

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// MaxKeyLen is the longest key a global store accepts.
	MaxKeyLen = 64

	// MaxEntryLen bounds len(key) + len(value) for a single entry.
	// Uint values count as 8 bytes.
	MaxEntryLen = 128
)

// ValueType tags the contents of a Value.
type ValueType uint8

const (
	TypeBytes ValueType = 1
	TypeUint  ValueType = 2
)

func (t ValueType) String() string {
	switch t {
	case TypeBytes:
		return "bytes"
	case TypeUint:
		return "uint"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Value is a typed global-state value: either a byte string or a uint64.
type Value struct {
	Type  ValueType
	Bytes []byte
	Uint  uint64
}

// Uint returns a uint64 Value.
func Uint(v uint64) Value { return Value{Type: TypeUint, Uint: v} }

// Bytes returns a byte-string Value holding a copy of b.
func Bytes(b []byte) Value {
	return Value{Type: TypeBytes, Bytes: append([]byte(nil), b...)}
}

// AsUint returns the integer payload or ErrTypeMismatch.
func (v Value) AsUint() (uint64, error) {
	if v.Type != TypeUint {
		return 0, fmt.Errorf("%w: want uint, have %s", ErrTypeMismatch, v.Type)
	}
	return v.Uint, nil
}

// AsBytes returns the byte payload or ErrTypeMismatch.
func (v Value) AsBytes() ([]byte, error) {
	if v.Type != TypeBytes {
		return nil, fmt.Errorf("%w: want bytes, have %s", ErrTypeMismatch, v.Type)
	}
	return v.Bytes, nil
}

// Equal reports whether two values have the same type and payload.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	if v.Type == TypeUint {
		return v.Uint == o.Uint
	}
	return bytes.Equal(v.Bytes, o.Bytes)
}

func (v Value) clone() Value {
	if v.Type == TypeBytes {
		return Bytes(v.Bytes)
	}
	return v
}

func (v Value) size() int {
	if v.Type == TypeUint {
		return 8
	}
	return len(v.Bytes)
}

// CheckEntry validates key and value against the store limits.
func CheckEntry(key []byte, v Value) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(key) > MaxKeyLen {
		return fmt.Errorf("%w: %d > %d", ErrKeyTooLong, len(key), MaxKeyLen)
	}
	if v.Type != TypeBytes && v.Type != TypeUint {
		return fmt.Errorf("%w: unknown type %d", ErrTypeMismatch, v.Type)
	}
	if n := len(key) + v.size(); n > MaxEntryLen {
		return fmt.Errorf("%w: key+value %d > %d", ErrValueTooLong, n, MaxEntryLen)
	}
	return nil
}

// encodeValue packs v as type(1) || payload, uint payloads big-endian.
func encodeValue(v Value) []byte {
	if v.Type == TypeUint {
		buf := make([]byte, 9)
		buf[0] = byte(TypeUint)
		binary.BigEndian.PutUint64(buf[1:], v.Uint)
		return buf
	}
	buf := make([]byte, 1+len(v.Bytes))
	buf[0] = byte(TypeBytes)
	copy(buf[1:], v.Bytes)
	return buf
}

func decodeValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return Value{}, fmt.Errorf("%w: empty", ErrCorruptValue)
	}
	switch ValueType(data[0]) {
	case TypeUint:
		if len(data) != 9 {
			return Value{}, fmt.Errorf("%w: uint payload %d bytes", ErrCorruptValue, len(data)-1)
		}
		return Uint(binary.BigEndian.Uint64(data[1:])), nil
	case TypeBytes:
		return Bytes(data[1:]), nil
	default:
		return Value{}, fmt.Errorf("%w: type byte %d", ErrCorruptValue, data[0])
	}
}
