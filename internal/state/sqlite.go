// Package state persists diagram arrangements and capture-session
// bookkeeping in SQLite. The layout engines never touch this package;
// callers read a cached arrangement here and overlay it onto freshly
// computed layout output.
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed persistence layer.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates an unopened store.
func NewStore() *Store {
	return &Store{}
}

// Open opens the SQLite database at path and runs pending migrations.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.migrate(); err != nil {
		db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Session is one trace-capture session.
type Session struct {
	ID            string
	Name          string
	StartedAt     time.Time
	FinishedAt    *time.Time
	FragmentCount int
	FailureCount  int
}

// CreateSession records the start of a capture session.
func (s *Store) CreateSession(name string) (*Session, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	sess := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO capture_sessions (id, name, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Name, sess.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// FinishSession records a session's end along with its fragment and
// failure counts.
func (s *Store) FinishSession(id string, fragments, failures int) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(
		`UPDATE capture_sessions SET finished_at = ?, fragment_count = ?, failure_count = ? WHERE id = ?`,
		time.Now().UTC(), fragments, failures, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %q not found", id)
	}
	return nil
}

// GetSession returns a session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	sess := &Session{}
	var finished sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, name, started_at, finished_at, fragment_count, failure_count
		 FROM capture_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Name, &sess.StartedAt, &finished, &sess.FragmentCount, &sess.FailureCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %q: %w", id, err)
	}
	if finished.Valid {
		sess.FinishedAt = &finished.Time
	}
	return sess, nil
}
