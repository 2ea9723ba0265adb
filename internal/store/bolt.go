package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	boltBucket = []byte("usage")
	boltKey    = []byte("entry")
)

// BoltStore keeps the JSON-encoded entry under a single bbolt key.
type BoltStore struct {
	path   string
	logger *zap.Logger
}

// NewBoltStore returns a store backed by the bbolt file at path.
func NewBoltStore(path string, logger *zap.Logger) *BoltStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoltStore{path: path, logger: logger}
}

// Path returns the database location.
func (s *BoltStore) Path() string { return s.path }

// Clear deletes the database file.
func (s *BoltStore) Clear() error { return removeFiles(s.path) }

func (s *BoltStore) open(readOnly bool) (*bolt.DB, error) {
	return bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: readOnly})
}

// Load reads the entry. Any database error is a miss.
func (s *BoltStore) Load() (Entry, bool) {
	if _, err := os.Stat(s.path); err != nil {
		return Entry{}, false
	}
	db, err := s.open(true)
	if err != nil {
		s.logger.Warn("opening cache db", zap.String("path", s.path), zap.Error(err))
		return Entry{}, false
	}
	defer func() { _ = db.Close() }()

	var data []byte
	_ = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		if v := b.Get(boltKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if data == nil {
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil || e.Timestamp.IsZero() {
		s.logger.Warn("discarding corrupt cache entry", zap.String("path", s.path), zap.Error(err))
		return Entry{}, false
	}
	return e, true
}

// Save replaces the entry in one bbolt transaction.
func (s *BoltStore) Save(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return &IOError{Op: "encode", Path: s.path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return &IOError{Op: "mkdir", Path: s.path, Err: err}
	}

	db, err := s.open(false)
	if err != nil {
		return &IOError{Op: "open", Path: s.path, Err: err}
	}
	defer func() { _ = db.Close() }()

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		return b.Put(boltKey, data)
	})
	if err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}
