// Package storage persists engine state between sessions: the UCI option
// map and a compressed snapshot of the search's learned move statistics.
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
)

const (
	keyOptions  = "options"
	keySnapshot = "search_snapshot"
)

// ErrCorruptSnapshot marks a snapshot whose checksum or framing failed;
// callers treat it as absent, never fatal.
var ErrCorruptSnapshot = errors.New("storage: corrupt search snapshot")

// Store wraps BadgerDB for persistent engine storage.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store in the default database directory.
func Open() (*Store, error) {
	dbDir, err := DatabaseDir()
	if err != nil {
		return nil, err
	}
	return OpenAt(dbDir)
}

// OpenAt opens a store rooted at the given directory.
func OpenAt(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveOptions persists the option map as JSON.
func (s *Store) SaveOptions(opts map[string]string) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyOptions), data)
	})
}

// LoadOptions returns the persisted option map, or an empty map when none
// was saved yet.
func (s *Store) LoadOptions() (map[string]string, error) {
	opts := make(map[string]string)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyOptions))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &opts)
		})
	})

	return opts, err
}

// SearchSnapshot is the learned search state carried across sessions. The
// butterfly history is small and cheap to restore, and gives the first
// search of a session sensible quiet-move ordering.
type SearchSnapshot struct {
	MainHistory [2][64 * 64]int16
}

// SaveSnapshot gob-encodes, compresses and checksums the snapshot.
func (s *Store) SaveSnapshot(snap *SearchSnapshot) error {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(snap); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	compressed := enc.EncodeAll(raw.Bytes(), nil)
	enc.Close()

	// Frame: 8-byte xxhash of the compressed payload, then the payload.
	frame := make([]byte, 8+len(compressed))
	binary.LittleEndian.PutUint64(frame, xxhash.Sum64(compressed))
	copy(frame[8:], compressed)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keySnapshot), frame)
	})
}

// LoadSnapshot restores a snapshot. A missing snapshot returns (nil, nil);
// a damaged one returns ErrCorruptSnapshot.
func (s *Store) LoadSnapshot() (*SearchSnapshot, error) {
	var frame []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySnapshot))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			frame = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, nil
	}
	if len(frame) < 8 {
		return nil, ErrCorruptSnapshot
	}

	sum := binary.LittleEndian.Uint64(frame)
	compressed := frame[8:]
	if xxhash.Sum64(compressed) != sum {
		return nil, ErrCorruptSnapshot
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, ErrCorruptSnapshot
	}

	snap := new(SearchSnapshot)
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(snap); err != nil {
		return nil, ErrCorruptSnapshot
	}
	return snap, nil
}
