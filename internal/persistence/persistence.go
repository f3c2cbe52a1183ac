// Package persistence stores the fault-detection core's in-memory state
// across restarts: one msgpack-encoded blob, upserted into a single-row
// sqlite table. Grounded on the portfolio trader's database.DB wrapper —
// same open/ping/pool-configure shape — traded for a single blob column
// instead of a relational schema, since the detector state is a closed set
// of counters read and written as a unit, never queried piecemeal.
package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"spacecraft/epscore/internal/detect/chronicidle"
	"spacecraft/epscore/internal/detect/pwrmonreaderror"
	"spacecraft/epscore/internal/detect/sourcedecay"
)

// State is the complete persisted snapshot of the fault-detection core:
// the three detectors' internal counters plus the shared cross-detector
// flags. A restart reloads this instead of starting cold, so a power
// cycle does not quietly reset evidence windows or monthly baselines.
type State struct {
	ReadError   bool
	SourceDecay bool

	ChronicIdle     chronicidle.State
	PwrMonReadError pwrmonreaderror.State
	SourceDecayDet  sourcedecay.State

	SavedAt time.Time
}

// Store wraps a single-row sqlite table holding the latest State blob.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) the database file at path and its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("persistence: create directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("persistence: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("persistence: ping: %w", err)
	}
	conn.SetMaxOpenConns(1) // single writer, single in-process reader

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS detector_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload BLOB NOT NULL,
			saved_at TEXT NOT NULL
		)`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persistence: migrate: %w", err)
	}

	return &Store{db: conn}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the given state as the single persisted row.
func (s *Store) Save(st State) error {
	st.SavedAt = time.Now()
	payload, err := msgpack.Marshal(st)
	if err != nil {
		return fmt.Errorf("persistence: encode: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO detector_state (id, payload, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		payload, st.SavedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("persistence: save: %w", err)
	}
	return nil
}

// Load returns the most recently saved state. ok is false if nothing has
// been saved yet, in which case callers should start the detectors cold.
func (s *Store) Load() (st State, ok bool, err error) {
	var payload []byte
	row := s.db.QueryRow(`SELECT payload FROM detector_state WHERE id = 1`)
	if scanErr := row.Scan(&payload); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("persistence: load: %w", scanErr)
	}

	if decErr := msgpack.Unmarshal(payload, &st); decErr != nil {
		return State{}, false, fmt.Errorf("persistence: decode: %w", decErr)
	}
	return st, true, nil
}
