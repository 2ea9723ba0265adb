// Package store keeps the single cached usage snapshot between runs.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/usage"

	"go.uber.org/zap"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Entry is the cached record: one snapshot and the time it was stored.
type Entry struct {
	Snapshot  usage.Snapshot `json:"snapshot"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEntry stamps a snapshot with its fetch time.
func NewEntry(s usage.Snapshot) Entry {
	return Entry{Snapshot: s, Timestamp: s.FetchedAt}
}

// Store is a single-slot snapshot cache. Load never fails; anything it cannot
// read is reported as a miss. Save replaces the slot atomically.
type Store interface {
	Load() (Entry, bool)
	Save(Entry) error
	Clear() error
	Path() string
}

// IsFresh reports whether the entry is younger than ttl at now.
func IsFresh(e Entry, ttl time.Duration, now time.Time) bool {
	return now.Sub(e.Timestamp) < ttl
}

// Status describes the cache slot for display.
type Status int

const (
	StatusMissing Status = iota
	StatusFresh
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusExpired:
		return "expired"
	default:
		return "missing"
	}
}

// StatusOf classifies a Load result.
func StatusOf(e Entry, ok bool, ttl time.Duration, now time.Time) Status {
	switch {
	case !ok:
		return StatusMissing
	case IsFresh(e, ttl, now):
		return StatusFresh
	default:
		return StatusExpired
	}
}

// ErrIO matches every IOError.
var ErrIO = errors.New("store: cache I/O failed")

// IOError is a failed cache write. It is never fatal.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// Open returns the store for backend rooted in dir.
// removeFiles deletes the given paths, ignoring ones that do not exist.
func removeFiles(paths ...string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &IOError{Op: "remove", Path: p, Err: err}
		}
	}
	return nil
}

// Open returns the store for backend with its file inside dir.
func Open(backend, dir string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch backend {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dir, "usage.json"), logger), nil
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, "usage.db"), logger), nil
	case BackendBolt:
		return NewBoltStore(filepath.Join(dir, "usage.bolt"), logger), nil
	default:
		return nil, fmt.Errorf("store: unknown cache backend %q", backend)
	}
}
