package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/mednft/libmednft-go/state"
)

const (
	// UnitaryPrice is the minimum mint payment, fixed at initialization.
	UnitaryPrice uint64 = 1_000_000

	// MaxTokens is the registry capacity.
	MaxTokens uint64 = 100
)

// State is the registry's view of its global store: the price, the token
// count and every token record. Changes are buffered until Flush.
type State struct {
	UnitaryPrice uint64
	TokenCount   uint64

	records    map[uint64]TokenRecord
	dirty      map[uint64]bool
	countDirty bool
}

// Initialize writes the initial price and a zero token count to an empty store.
func Initialize(store state.Store) error {
	keys, err := store.Keys()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return fmt.Errorf("%w: %d keys present", ErrAlreadyInitialized, len(keys))
	}
	if err := store.Put(KeyUnitaryPrice, state.Uint(UnitaryPrice)); err != nil {
		return err
	}
	return store.Put(KeyTokenCount, state.Uint(0))
}

// LoadState reads the registry state from store.
func LoadState(store state.Store) (*State, error) {
	price, err := getUint(store, KeyUnitaryPrice)
	if err != nil {
		return nil, err
	}
	count, err := getUint(store, KeyTokenCount)
	if err != nil {
		return nil, err
	}

	st := &State{
		UnitaryPrice: price,
		TokenCount:   count,
		records:      make(map[uint64]TokenRecord),
		dirty:        make(map[uint64]bool),
	}
	keys, err := store.Keys()
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if !isRecordKey(k) {
			continue
		}
		v, _, err := store.Get(k)
		if err != nil {
			return nil, err
		}
		raw, err := v.AsBytes()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
		}
		rec, err := DecodeRecord(raw)
		if err != nil {
			return nil, err
		}
		st.records[binary.BigEndian.Uint64(k[len(recordPrefix):])] = rec
	}
	return st, nil
}

func getUint(store state.Store, key []byte) (uint64, error) {
	v, ok, err := store.Get(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrNotInitialized, key)
	}
	n, err := v.AsUint()
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrNotInitialized, key, err)
	}
	return n, nil
}

// Record returns the record of token id, if one exists.
func (s *State) Record(id uint64) (TokenRecord, bool) {
	r, ok := s.records[id]
	return r, ok
}

// TokenIDs returns every token id with a record, ascending.
func (s *State) TokenIDs() []uint64 {
	ids := make([]uint64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// putRecord sets the record of token id.
func (s *State) putRecord(id uint64, r TokenRecord) {
	s.records[id] = r
	s.dirty[id] = true
}

// appendToken records a new token with the next id and returns that id.
func (s *State) appendToken(r TokenRecord) (uint64, error) {
	if s.TokenCount >= MaxTokens {
		return 0, fmt.Errorf("%w: %d tokens", ErrCapacityExceeded, s.TokenCount)
	}
	id := s.TokenCount + 1
	s.putRecord(id, r)
	s.TokenCount = id
	s.countDirty = true
	return id, nil
}

// Flush writes buffered changes to store.
func (s *State) Flush(store state.Store) error {
	ids := make([]uint64, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := store.Put(RecordKey(id), state.Bytes(s.records[id].Encode())); err != nil {
			return fmt.Errorf("registry: write record %d: %w", id, err)
		}
	}
	if s.countDirty {
		if err := store.Put(KeyTokenCount, state.Uint(s.TokenCount)); err != nil {
			return fmt.Errorf("registry: write token count: %w", err)
		}
	}
	s.dirty = make(map[uint64]bool)
	s.countDirty = false
	return nil
}

// Lookup reads the record of token id straight from store.
func Lookup(store state.Store, id uint64) (TokenRecord, bool, error) {
	raw, err := ReadRaw(store, id)
	if err != nil || len(raw) == 0 {
		return TokenRecord{}, false, err
	}
	rec, err := DecodeRecord(raw)
	if err != nil {
		return TokenRecord{}, false, err
	}
	return rec, true, nil
}

// ReadRaw returns the stored bytes of token id's record, empty when absent.
func ReadRaw(store state.Store, id uint64) ([]byte, error) {
	v, ok, err := store.Get(RecordKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte{}, nil
	}
	raw, err := v.AsBytes()
	if errors.Is(err, state.ErrTypeMismatch) {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return raw, err
}
