// Package state implements the flat global key-value store attached to a
// deployed application.
//
// Keys are byte strings of at most MaxKeyLen bytes; values are typed
// (bytes or uint64). MemStore keeps entries in memory, BoltDB persists one
// bucket per application, and Overlay stages writes so a whole call group can
// be committed or discarded at once.
package state

import (
	"bytes"
	"sort"
	"sync"
)

// Store is a global key-value store.
type Store interface {
	// Get returns the value under key and whether it exists.
	Get(key []byte) (Value, bool, error)

	// Put writes value under key.
	Put(key []byte, v Value) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// Keys returns all keys in ascending byte order.
	Keys() ([][]byte, error)
}

// Batcher is implemented by stores that can apply several writes in one
// atomic step.
type Batcher interface {
	Batch(fn func(Store) error) error
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]Value
}

var (
	_ Store   = (*MemStore)(nil)
	_ Batcher = (*MemStore)(nil)
)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]Value)}
}

// Get returns the value under key.
func (s *MemStore) Get(key []byte) (Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[string(key)]
	if !ok {
		return Value{}, false, nil
	}
	return v.clone(), true, nil
}

// Put writes value under key.
func (s *MemStore) Put(key []byte, v Value) error {
	if err := CheckEntry(key, v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[string(key)] = v.clone()
	return nil
}

// Delete removes key.
func (s *MemStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, string(key))
	return nil
}

// Keys returns all keys in ascending order.
func (s *MemStore) Keys() ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([][]byte, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, []byte(k))
	}
	sortKeys(keys)
	return keys, nil
}

// Batch applies fn against a scratch copy and swaps it in only if fn
// succeeds.
func (s *MemStore) Batch(fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scratch := &MemStore{entries: make(map[string]Value, len(s.entries))}
	for k, v := range s.entries {
		scratch.entries[k] = v
	}
	if err := fn(scratch); err != nil {
		return err
	}
	s.entries = scratch.entries
	return nil
}

// Len returns the number of entries.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func sortKeys(keys [][]byte) {
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
}
