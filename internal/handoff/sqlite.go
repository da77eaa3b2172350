package handoff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sdlcpilot/internal/logging"
	"sdlcpilot/internal/testcase"

	_ "github.com/mattn/go-sqlite3"
)

const handoffSchema = `
CREATE TABLE IF NOT EXISTS handoff (
	session_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore persists hand-offs so they survive across CLI invocations of
// the same session.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the hand-off database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryHandoff, "NewSQLiteStore")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.HandoffDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.HandoffDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec(handoffSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create handoff table: %w", err)
	}

	logging.Handoff("Hand-off store ready at %s", path)
	return &SQLiteStore{db: db, path: path}, nil
}

// Publish implements Store.
func (s *SQLiteStore) Publish(ctx context.Context, sessionID string, cases []testcase.TestCase) error {
	data, err := encodeCases(cases)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO handoff (session_id, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(session_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		sessionID, string(data),
	)
	if err != nil {
		logging.Get(logging.CategoryHandoff).Error("Failed to publish hand-off for %s: %v", sessionID, err)
		return fmt.Errorf("failed to publish hand-off: %w", err)
	}
	logging.HandoffDebug("Published %d test cases for session %s (sqlite)", len(cases), sessionID)
	return nil
}

// Consume implements Store.
func (s *SQLiteStore) Consume(ctx context.Context, sessionID string) ([]testcase.TestCase, bool) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM handoff WHERE session_id = ?", sessionID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		logging.Get(logging.CategoryHandoff).Warn("Failed to read hand-off for %s: %v", sessionID, err)
		return nil, false
	}
	return decodeCases(sessionID, []byte(payload))
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM handoff WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear hand-off: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
