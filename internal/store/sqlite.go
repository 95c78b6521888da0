// Package store persists probe sessions, trial evidence, and confirmed
// calibrations in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"lumiprobe/internal/probe"
)

// Schema for the lumiprobe calibration store.
const schema = `
CREATE TABLE IF NOT EXISTS probe_sessions (
    id              TEXT PRIMARY KEY,
    device          TEXT NOT NULL,
    started_at      INTEGER NOT NULL,
    finished_at     INTEGER NOT NULL,
    confirmed       INTEGER NOT NULL,
    aborted         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trials (
    session_id  TEXT NOT NULL REFERENCES probe_sessions(id),
    requested   INTEGER NOT NULL,
    ordinal     INTEGER NOT NULL,
    outcome     TEXT NOT NULL,
    coverage    REAL NOT NULL,
    PRIMARY KEY (session_id, requested, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_trials_requested ON trials(session_id, requested);

CREATE TABLE IF NOT EXISTS calibrations (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    device          TEXT NOT NULL,
    segments        INTEGER NOT NULL,
    strategy        TEXT NOT NULL,
    session_id      TEXT REFERENCES probe_sessions(id),
    confirmed_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_calibrations_device ON calibrations(device, confirmed_at);
`

// Store represents the SQLite calibration store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and
// applies the schema.
func Open(path string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSession stores a probe session header and every recorded trial,
// in one transaction. Aborted sessions are stored too; their evidence
// is the point.
func (s *Store) SaveSession(sess *probe.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	aborted := 0
	if sess.Aborted {
		aborted = 1
	}
	_, err = tx.Exec(`
		INSERT INTO probe_sessions (id, device, started_at, finished_at, confirmed, aborted)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID.String(), sess.Device,
		sess.StartedAt.UnixNano(), sess.FinishedAt.UnixNano(),
		sess.Confirmed, aborted,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for requested, trials := range sess.Tried {
		for ordinal, tr := range trials {
			_, err = tx.Exec(`
				INSERT INTO trials (session_id, requested, ordinal, outcome, coverage)
				VALUES (?, ?, ?, ?, ?)`,
				sess.ID.String(), requested, ordinal, tr.Outcome.String(), tr.Coverage,
			)
			if err != nil {
				return fmt.Errorf("insert trial %d/%d: %w", requested, ordinal, err)
			}
		}
	}

	return tx.Commit()
}

// SaveCalibration stores a confirmed calibration.
func (s *Store) SaveCalibration(c *Calibration) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO calibrations (device, segments, strategy, session_id, confirmed_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.Device, c.Segments, c.Strategy, c.SessionID, c.ConfirmedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert calibration: %w", err)
	}
	return result.LastInsertId()
}

// LatestCalibration returns the most recent calibration for a device,
// or nil when the device has never been calibrated.
func (s *Store) LatestCalibration(device string) (*Calibration, error) {
	row := s.db.QueryRow(`
		SELECT id, device, segments, strategy, session_id, confirmed_at
		FROM calibrations
		WHERE device = ?
		ORDER BY confirmed_at DESC
		LIMIT 1`, device)

	var c Calibration
	err := row.Scan(&c.ID, &c.Device, &c.Segments, &c.Strategy, &c.SessionID, &c.ConfirmedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan calibration: %w", err)
	}
	return &c, nil
}

// GetSession returns a stored session header, or nil when unknown.
func (s *Store) GetSession(id string) (*SessionRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, device, started_at, finished_at, confirmed, aborted
		FROM probe_sessions WHERE id = ?`, id)

	var rec SessionRecord
	var aborted int
	err := row.Scan(&rec.ID, &rec.Device, &rec.StartedAt, &rec.FinishedAt, &rec.Confirmed, &aborted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	rec.Aborted = aborted != 0
	return &rec, nil
}

// LatestSession returns the most recent session header for a device,
// or nil when none exists.
func (s *Store) LatestSession(device string) (*SessionRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, device, started_at, finished_at, confirmed, aborted
		FROM probe_sessions
		WHERE device = ?
		ORDER BY started_at DESC
		LIMIT 1`, device)

	var rec SessionRecord
	var aborted int
	err := row.Scan(&rec.ID, &rec.Device, &rec.StartedAt, &rec.FinishedAt, &rec.Confirmed, &aborted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	rec.Aborted = aborted != 0
	return &rec, nil
}

// SessionTrials returns every stored trial of a session, ordered by
// requested count descending and trial order within each count.
func (s *Store) SessionTrials(sessionID string) ([]TrialRecord, error) {
	rows, err := s.db.Query(`
		SELECT session_id, requested, ordinal, outcome, coverage
		FROM trials
		WHERE session_id = ?
		ORDER BY requested DESC, ordinal ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var trials []TrialRecord
	for rows.Next() {
		var tr TrialRecord
		if err := rows.Scan(&tr.SessionID, &tr.Requested, &tr.Ordinal, &tr.Outcome, &tr.Coverage); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		trials = append(trials, tr)
	}
	return trials, rows.Err()
}
