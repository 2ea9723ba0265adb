package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const fileFormatVersion = 1

type fileRecord struct {
	Version int `json:"version"`
	Entry
}

// FileStore keeps the entry as a JSON document.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the cache file location.
func (s *FileStore) Path() string { return s.path }

// Clear deletes the cache file.
func (s *FileStore) Clear() error { return removeFiles(s.path) }

// Load reads the entry. Missing or corrupt files are a miss.
func (s *FileStore) Load() (Entry, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading cache", zap.String("path", s.path), zap.Error(err))
		}
		return Entry{}, false
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("discarding corrupt cache", zap.String("path", s.path), zap.Error(err))
		return Entry{}, false
	}
	if rec.Version != fileFormatVersion || rec.Timestamp.IsZero() {
		s.logger.Info("discarding cache with unknown format", zap.Int("version", rec.Version))
		return Entry{}, false
	}
	return rec.Entry, true
}

// Save writes to a temp file next to the slot and renames it into place.
func (s *FileStore) Save(e Entry) error {
	data, err := json.MarshalIndent(fileRecord{Version: fileFormatVersion, Entry: e}, "", "  ")
	if err != nil {
		return &IOError{Op: "encode", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "usage-*.tmp")
	if err != nil {
		return &IOError{Op: "create temp file", Path: dir, Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return &IOError{Op: "replace", Path: s.path, Err: fmt.Errorf("rename %s: %w", tmpName, err)}
	}
	return nil
}
