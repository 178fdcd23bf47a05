package state

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories lets the same contract tests run against every Store.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	db, err := OpenBoltDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var next uint64
	return map[string]func() Store{
		"mem": func() Store { return NewMemStore() },
		"bolt": func() Store {
			next++
			return db.Global(next)
		},
		"overlay": func() Store {
			o, err := NewOverlay(NewMemStore())
			require.NoError(t, err)
			return o
		},
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()

			_, ok, err := s.Get([]byte("nftCount"))
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Put([]byte("nftCount"), Uint(3)))
			require.NoError(t, s.Put([]byte("blob"), Bytes([]byte{0xAA, ':', 0xBB})))

			v, ok, err := s.Get([]byte("nftCount"))
			require.NoError(t, err)
			require.True(t, ok)
			n, err := v.AsUint()
			require.NoError(t, err)
			assert.Equal(t, uint64(3), n)

			v, ok, err = s.Get([]byte("blob"))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte{0xAA, ':', 0xBB}, v.Bytes)

			_, err = v.AsUint()
			assert.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}

func TestStore_DeleteAndKeys(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			for _, k := range []string{"b", "a", "c"} {
				require.NoError(t, s.Put([]byte(k), Uint(1)))
			}
			require.NoError(t, s.Delete([]byte("b")))
			require.NoError(t, s.Delete([]byte("missing")))

			keys, err := s.Keys()
			require.NoError(t, err)
			assert.Equal(t, [][]byte{[]byte("a"), []byte("c")}, keys)
		})
	}
}

func TestStore_Limits(t *testing.T) {
	long := bytes.Repeat([]byte{'k'}, MaxKeyLen+1)
	maxKey := bytes.Repeat([]byte{'k'}, MaxKeyLen)

	tests := []struct {
		name    string
		key     []byte
		value   Value
		wantErr error
	}{
		{"empty key", nil, Uint(1), ErrEmptyKey},
		{"key too long", long, Uint(1), ErrKeyTooLong},
		{"entry too long", maxKey, Bytes(make([]byte, MaxEntryLen-MaxKeyLen+1)), ErrValueTooLong},
		{"entry at limit", maxKey, Bytes(make([]byte, MaxEntryLen-MaxKeyLen)), nil},
		{"unknown type", []byte("k"), Value{Type: 9}, ErrTypeMismatch},
	}
	for name, newStore := range storeFactories(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				err := newStore().Put(tt.key, tt.value)
				if tt.wantErr == nil {
					assert.NoError(t, err)
					return
				}
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewMemStore()
	raw := []byte{1, 2, 3}
	require.NoError(t, s.Put([]byte("k"), Bytes(raw)))
	raw[0] = 9

	v, _, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v.Bytes)

	v.Bytes[1] = 9
	again, _, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again.Bytes)
}

func TestValue_Codec(t *testing.T) {
	for _, v := range []Value{Uint(0), Uint(1_000_000), Bytes(nil), Bytes([]byte("x"))} {
		got, err := decodeValue(encodeValue(v))
		require.NoError(t, err)
		assert.True(t, v.Equal(got), "%v", v)
	}

	_, err := decodeValue(nil)
	assert.ErrorIs(t, err, ErrCorruptValue)
	_, err = decodeValue([]byte{byte(TypeUint), 1})
	assert.ErrorIs(t, err, ErrCorruptValue)
	_, err = decodeValue([]byte{7})
	assert.ErrorIs(t, err, ErrCorruptValue)
}

func TestOverlay_CommitAndDiscard(t *testing.T) {
	base := NewMemStore()
	require.NoError(t, base.Put([]byte("keep"), Uint(1)))
	require.NoError(t, base.Put([]byte("drop"), Uint(2)))

	o, err := NewOverlay(base)
	require.NoError(t, err)
	require.NoError(t, o.Put([]byte("new"), Uint(3)))
	require.NoError(t, o.Delete([]byte("drop")))

	// Staged writes are visible through the overlay only.
	_, ok, _ := o.Get([]byte("drop"))
	assert.False(t, ok)
	_, ok, _ = base.Get([]byte("new"))
	assert.False(t, ok)

	keys, err := o.Keys()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("keep"), []byte("new")}, keys)

	o.Discard()
	assert.False(t, o.Dirty())
	_, ok, _ = o.Get([]byte("drop"))
	assert.True(t, ok)

	require.NoError(t, o.Put([]byte("new"), Uint(3)))
	require.NoError(t, o.Commit())
	assert.False(t, o.Dirty())
	v, ok, err := base.Get([]byte("new"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(3), v.Uint)
}

// failingStore rejects writes to one key.
type failingStore struct {
	*MemStore
	poison string
}

func (f *failingStore) Put(key []byte, v Value) error {
	if string(key) == f.poison {
		return errors.New("disk full")
	}
	return f.MemStore.Put(key, v)
}

func (f *failingStore) Batch(fn func(Store) error) error {
	return f.MemStore.Batch(func(s Store) error {
		return fn(&failingStore{MemStore: s.(*MemStore), poison: f.poison})
	})
}

func TestOverlay_CommitIsAtomic(t *testing.T) {
	base := &failingStore{MemStore: NewMemStore(), poison: "z"}
	o, err := NewOverlay(base)
	require.NoError(t, err)
	require.NoError(t, o.Put([]byte("a"), Uint(1)))
	require.NoError(t, o.Put([]byte("z"), Uint(2)))

	err = o.Commit()
	require.Error(t, err)
	assert.Equal(t, 0, base.Len())
	assert.True(t, o.Dirty())
}

func TestOpenBoltDB_LockedByAnotherHandle(t *testing.T) {
	prev := LockTimeout
	LockTimeout = 100 * time.Millisecond
	defer func() { LockTimeout = prev }()

	path := filepath.Join(t.TempDir(), "state.db")
	db, err := OpenBoltDB(path)
	require.NoError(t, err)

	start := time.Now()
	_, err = OpenBoltDB(path)
	assert.ErrorIs(t, err, ErrDatabaseInUse)
	assert.Less(t, time.Since(start), 5*time.Second)

	require.NoError(t, db.Close())
	db, err = OpenBoltDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOverlay_BoltCommitIsAtomic(t *testing.T) {
	db, err := OpenBoltDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer db.Close()

	g := db.Global(1)
	o, err := NewOverlay(g)
	require.NoError(t, err)
	require.NoError(t, o.Put([]byte("a"), Uint(1)))
	require.NoError(t, o.Commit())

	// A second overlay whose commit fails halfway leaves bolt untouched.
	o2, err := NewOverlay(g)
	require.NoError(t, err)
	require.NoError(t, o2.Put([]byte("a"), Uint(7)))
	o2.writes["bad"] = &Value{Type: 42}
	o2.order = append(o2.order, "bad")
	require.Error(t, o2.Commit())

	v, _, err := g.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Uint)
}

func TestNewOverlay_Nil(t *testing.T) {
	_, err := NewOverlay(nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestBoltDB_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "state.db")

	db, err := OpenBoltDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Global(7).Put([]byte("unitaryPrice"), Uint(1_000_000)))
	require.NoError(t, db.Namespace("cids").Put([]byte("fp"), Bytes([]byte("Qm"))))
	require.NoError(t, db.PutBlob("ledger", []byte(`{"round":1}`)))
	require.NoError(t, db.Close())

	db, err = OpenBoltDB(path)
	require.NoError(t, err)
	defer db.Close()

	v, ok, err := db.Global(7).Get([]byte("unitaryPrice"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1_000_000), v.Uint)

	// Apps and namespaces are isolated.
	_, ok, err = db.Global(8).Get([]byte("unitaryPrice"))
	require.NoError(t, err)
	assert.False(t, ok)
	keys, err := db.Global(8).Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	v, ok, err = db.Namespace("cids").Get([]byte("fp"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("Qm"), v.Bytes)

	blob, err := db.GetBlob("ledger")
	require.NoError(t, err)
	assert.Equal(t, `{"round":1}`, string(blob))

	_, err = db.GetBlob("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
