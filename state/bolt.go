package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// LockTimeout bounds how long OpenBoltDB waits for the file lock.
var LockTimeout = time.Second

var (
	bucketGlobals    = []byte("globals")
	bucketNamespaces = []byte("namespaces")
	bucketBlobs      = []byte("blobs")
)

// BoltDB wraps a bbolt database holding every application's global state
// plus opaque named blobs (used for the ledger snapshot and content index).
type BoltDB struct {
	db *bbolt.DB
}

// OpenBoltDB opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltDB(dbPath string) (*BoltDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("state: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: LockTimeout})
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseInUse, dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("state: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketGlobals, bucketNamespaces, bucketBlobs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state: create buckets: %w", err)
	}
	return &BoltDB{db: db}, nil
}

// Close closes the underlying database.
func (d *BoltDB) Close() error { return d.db.Close() }

// Global returns the Store for appID's global state.
func (d *BoltDB) Global(appID uint64) *BoltStore {
	return &BoltStore{db: d.db, parent: bucketGlobals, name: appKey(appID)}
}

// Namespace returns a Store in its own named bucket, outside any
// application's global state.
func (d *BoltDB) Namespace(name string) *BoltStore {
	return &BoltStore{db: d.db, parent: bucketNamespaces, name: []byte(name)}
}

// PutBlob stores data under name, replacing any previous value.
func (d *BoltDB) PutBlob(name string, data []byte) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketBlobs).Put([]byte(name), data); err != nil {
			return fmt.Errorf("state: put blob %q: %w", name, err)
		}
		return nil
	})
}

// GetBlob returns the blob stored under name or ErrNotFound.
func (d *BoltDB) GetBlob(name string) ([]byte, error) {
	var out []byte
	err := d.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketBlobs).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: blob %q", ErrNotFound, name)
		}
		out = append([]byte(nil), data...)
		return nil
	})
	return out, err
}

// appKey encodes an application id as an 8-byte big-endian bucket name.
func appKey(appID uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, appID)
	return k
}

// BoltStore is one application's global state (or one namespace) inside a
// BoltDB.
// Its bucket is created on first write.
type BoltStore struct {
	db     *bbolt.DB
	parent []byte
	name   []byte
}

var (
	_ Store   = (*BoltStore)(nil)
	_ Batcher = (*BoltStore)(nil)
)

// Get returns the value under key.
func (s *BoltStore) Get(key []byte) (Value, bool, error) {
	var (
		v     Value
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.parent).Bucket(s.name)
		if b == nil {
			return nil
		}
		data := b.Get(key)
		if data == nil {
			return nil
		}
		decoded, err := decodeValue(data)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		v, found = decoded, true
		return nil
	})
	if err != nil {
		return Value{}, false, fmt.Errorf("state: get: %w", err)
	}
	return v, found, nil
}

// Put writes value under key.
func (s *BoltStore) Put(key []byte, v Value) error {
	return s.Batch(func(st Store) error { return st.Put(key, v) })
}

// Delete removes key.
func (s *BoltStore) Delete(key []byte) error {
	return s.Batch(func(st Store) error { return st.Delete(key) })
}

// Keys returns all keys in ascending order.
func (s *BoltStore) Keys() ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.parent).Bucket(s.name)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("state: list keys: %w", err)
	}
	return keys, nil
}

// Batch runs fn inside a single bbolt read-write transaction.
func (s *BoltStore) Batch(fn func(Store) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(s.parent).CreateBucketIfNotExists(s.name)
		if err != nil {
			return fmt.Errorf("state: create bucket %q: %w", s.name, err)
		}
		return fn(&txStore{b: b})
	})
}

// txStore is a Store view over a bucket inside an open transaction.
type txStore struct {
	b *bbolt.Bucket
}

func (t *txStore) Get(key []byte) (Value, bool, error) {
	data := t.b.Get(key)
	if data == nil {
		return Value{}, false, nil
	}
	v, err := decodeValue(data)
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

func (t *txStore) Put(key []byte, v Value) error {
	if err := CheckEntry(key, v); err != nil {
		return err
	}
	return t.b.Put(key, encodeValue(v))
}

func (t *txStore) Delete(key []byte) error {
	return t.b.Delete(key)
}

func (t *txStore) Keys() ([][]byte, error) {
	var keys [][]byte
	err := t.b.ForEach(func(k, _ []byte) error {
		keys = append(keys, append([]byte(nil), k...))
		return nil
	})
	return keys, err
}
