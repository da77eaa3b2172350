package handoff

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sdlcpilot/internal/logging"
	"sdlcpilot/internal/testcase"
	"strings"

	"github.com/google/uuid"
)

const sessionFile = "session"

// Session binds a Store to a single session id.
type Session struct {
	ID    string
	store Store
}

// NewSession binds store to id.
func NewSession(store Store, id string) *Session {
	return &Session{ID: id, store: store}
}

// Publish replaces the session's test cases.
func (s *Session) Publish(ctx context.Context, cases []testcase.TestCase) error {
	return s.store.Publish(ctx, s.ID, cases)
}

// Consume returns the session's test cases without removing them.
func (s *Session) Consume(ctx context.Context) ([]testcase.TestCase, bool) {
	return s.store.Consume(ctx, s.ID)
}

// End clears the session's hand-off.
func (s *Session) End(ctx context.Context) error {
	return s.store.Clear(ctx, s.ID)
}

// LoadOrCreateSessionID returns the session id persisted in dir, starting a
// new session when none exists or the stored one is unreadable.
func LoadOrCreateSessionID(dir string) (string, error) {
	path := filepath.Join(dir, sessionFile)
	if data, err := os.ReadFile(path); err == nil {
		id := strings.TrimSpace(string(data))
		if _, err := uuid.Parse(id); err == nil {
			return id, nil
		}
		logging.HandoffDebug("Ignoring malformed session file %s", path)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write session file: %w", err)
	}
	logging.Handoff("Started session %s", id)
	return id, nil
}

// EndSession forgets the session persisted in dir and returns its id, or ""
// when no session was active.
func EndSession(dir string) (string, error) {
	path := filepath.Join(dir, sessionFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("failed to remove session file: %w", err)
	}
	id := strings.TrimSpace(string(data))
	logging.Handoff("Ended session %s", id)
	return id, nil
}
