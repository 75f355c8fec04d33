// Package history persists booking attempts so operators can see what
// ran overnight without digging through logs.
package history

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Attempt is one booking run, successful or not.
type Attempt struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	CampusName   string    `json:"campus_name"`
	FacilityName string    `json:"facility_name"`
	DateNumber   string    `json:"date_number"`
	TimeSlot     string    `json:"time_slot"`
	Retries      int       `json:"retries"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Store is a SQLite-backed attempt log. Thread-safe.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS booking_attempts (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		campus_name TEXT NOT NULL,
		facility_name TEXT NOT NULL,
		date_number TEXT NOT NULL,
		time_slot TEXT NOT NULL,
		retries INTEGER NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_message TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_started ON booking_attempts(started_at);
	CREATE INDEX IF NOT EXISTS idx_attempts_success ON booking_attempts(success);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record persists an attempt, assigning an id when absent.
func (s *Store) Record(a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := s.db.Exec(`
		INSERT INTO booking_attempts
			(id, username, campus_name, facility_name, date_number,
			 time_slot, retries, success, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.CampusName, a.FacilityName, a.DateNumber,
		a.TimeSlot, a.Retries, a.Success, a.ErrorMessage,
		a.StartedAt.UTC(), a.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Recent returns the most recent attempts, newest first.
func (s *Store) Recent(limit int) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, username, campus_name, facility_name, date_number,
		       time_slot, retries, success, error_message, started_at, finished_at
		FROM booking_attempts
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var errMsg sql.NullString
		if err := rows.Scan(&a.ID, &a.Username, &a.CampusName, &a.FacilityName,
			&a.DateNumber, &a.TimeSlot, &a.Retries, &a.Success, &errMsg,
			&a.StartedAt, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.ErrorMessage = errMsg.String
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
