package state

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("state: required parameter is nil")

	// ErrEmptyKey indicates a zero-length key.
	ErrEmptyKey = errors.New("state: key is empty")

	// ErrKeyTooLong indicates a key longer than MaxKeyLen.
	ErrKeyTooLong = errors.New("state: key too long")

	// ErrValueTooLong indicates key and value together exceed MaxEntryLen.
	ErrValueTooLong = errors.New("state: value too long")

	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("state: not found")

	// ErrTypeMismatch indicates a stored value has an unexpected type.
	ErrTypeMismatch = errors.New("state: value type mismatch")

	// ErrCorruptValue indicates an on-disk value cannot be decoded.
	ErrCorruptValue = errors.New("state: corrupt value")

	// ErrDatabaseInUse indicates another process holds the database lock.
	ErrDatabaseInUse = errors.New("state: database in use")
)
