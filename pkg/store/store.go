// Package store persists emitted records into a sqlite session log for
// post-run analysis.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openrover/soilbox/pkg/record"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	site       INTEGER NOT NULL,
	started_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS readings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES sessions(id),
	time_ms    INTEGER NOT NULL,
	sensor     TEXT NOT NULL,
	value      REAL NOT NULL,
	unit       TEXT NOT NULL,
	temp_c     REAL NOT NULL,
	hum_pct    REAL NOT NULL,
	press_hpa  REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_readings_session ON readings(session_id, time_ms);
`

const insertReadingSQL = `INSERT INTO readings
(session_id, time_ms, sensor, value, unit, temp_c, hum_pct, press_hpa)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Store is a sqlite-backed session log of emitted records.
type Store struct {
	db      *sql.DB
	insert  *sql.Stmt
	session int64
}

// Open opens (or creates) the database at path and begins a new session for
// the given site.
func Open(path string, site int) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	res, err := db.Exec(`INSERT INTO sessions (site) VALUES (?)`, site)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating session: %w", err)
	}

	session, err := res.LastInsertId()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("getting session ID: %w", err)
	}

	insert, err := db.Prepare(insertReadingSQL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}

	return &Store{db: db, insert: insert, session: session}, nil
}

// Session returns the current session ID.
func (s *Store) Session() int64 {
	return s.session
}

// Append persists one emitted record.
func (s *Store) Append(r record.Record) error {
	_, err := s.insert.Exec(s.session, r.TimeMs, r.Sensor, r.Value, r.Unit,
		r.Env.Temperature, r.Env.Humidity, r.Env.Pressure)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// Close closes the prepared statement and the database.
func (s *Store) Close() error {
	if err := s.insert.Close(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("closing statement: %w", err)
	}
	return s.db.Close()
}
