package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/usage"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLiteStore keeps the entry in a SQLite database. The database is opened
// per call so a broken file only costs one miss.
type SQLiteStore struct {
	path   string
	logger *zap.Logger
}

// NewSQLiteStore returns a store backed by the database at path.
func NewSQLiteStore(path string, logger *zap.Logger) *SQLiteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{path: path, logger: logger}
}

// Path returns the database location.
func (s *SQLiteStore) Path() string { return s.path }

// Clear deletes the database along with its WAL files.
func (s *SQLiteStore) Clear() error {
	return removeFiles(s.path, s.path+"-wal", s.path+"-shm")
}

func (s *SQLiteStore) open() (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(2000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// Load reads the entry. Any database error is a miss.
func (s *SQLiteStore) Load() (Entry, bool) {
	if _, err := os.Stat(s.path); err != nil {
		return Entry{}, false
	}
	db, err := s.open()
	if err != nil {
		s.logger.Warn("opening cache db", zap.String("path", s.path), zap.Error(err))
		return Entry{}, false
	}
	defer func() { _ = db.Close() }()

	e, err := loadEntry(db)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("reading cache db", zap.String("path", s.path), zap.Error(err))
		}
		return Entry{}, false
	}
	return e, true
}

func loadEntry(db *sql.DB) (Entry, error) {
	var (
		snap                       usage.Snapshot
		resetAt, fetchedAt, stored string
	)
	row := db.QueryRow(`SELECT username, used, quota, remaining, percent, billed_amount, reset_at, fetched_at, stored_at
		FROM snapshot WHERE slot = 1`)
	if err := row.Scan(&snap.Username, &snap.Used, &snap.Limit, &snap.Remaining, &snap.Percent,
		&snap.BilledAmount, &resetAt, &fetchedAt, &stored); err != nil {
		return Entry{}, err
	}

	var e Entry
	var err error
	if snap.ResetAt, err = time.Parse(time.RFC3339Nano, resetAt); err != nil {
		return Entry{}, fmt.Errorf("parsing reset_at: %w", err)
	}
	if snap.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt); err != nil {
		return Entry{}, fmt.Errorf("parsing fetched_at: %w", err)
	}
	if e.Timestamp, err = time.Parse(time.RFC3339Nano, stored); err != nil {
		return Entry{}, fmt.Errorf("parsing stored_at: %w", err)
	}

	rows, err := db.Query("SELECT category, amount FROM snapshot_breakdown")
	if err != nil {
		return Entry{}, err
	}
	defer func() { _ = rows.Close() }()

	snap.Breakdown = make(map[string]float64)
	for rows.Next() {
		var cat string
		var amount float64
		if err := rows.Scan(&cat, &amount); err != nil {
			return Entry{}, err
		}
		snap.Breakdown[cat] = amount
	}
	if err := rows.Err(); err != nil {
		return Entry{}, err
	}

	e.Snapshot = snap
	return e, nil
}

// Save replaces the slot and its breakdown in one transaction.
func (s *SQLiteStore) Save(e Entry) error {
	db, err := s.open()
	if err != nil {
		return &IOError{Op: "open", Path: s.path, Err: err}
	}
	defer func() { _ = db.Close() }()

	if err := saveEntry(db, e); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func saveEntry(db *sql.DB, e Entry) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	snap := e.Snapshot
	_, err = tx.Exec(`INSERT OR REPLACE INTO snapshot
		(slot, username, used, quota, remaining, percent, billed_amount, reset_at, fetched_at, stored_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Username, snap.Used, snap.Limit, snap.Remaining, snap.Percent, snap.BilledAmount,
		snap.ResetAt.UTC().Format(time.RFC3339Nano),
		snap.FetchedAt.UTC().Format(time.RFC3339Nano),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM snapshot_breakdown"); err != nil {
		return fmt.Errorf("clearing breakdown: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO snapshot_breakdown (category, amount) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for cat, amount := range snap.Breakdown {
		if _, err := stmt.Exec(cat, amount); err != nil {
			return fmt.Errorf("writing breakdown %s: %w", cat, err)
		}
	}

	return tx.Commit()
}
