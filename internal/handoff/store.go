// Package handoff carries generated test cases from the test case flow to
// the code generation flow within one session.
package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"sdlcpilot/internal/config"
	"sdlcpilot/internal/logging"
	"sdlcpilot/internal/testcase"
)

// Store is a session-scoped slot holding the most recently published batch
// of test cases.
//
// Consume never removes the stored value and never fails: a session that was
// never published to, or whose stored value no longer decodes into valid test
// cases, is reported as absent.
type Store interface {
	// Publish replaces the session's test cases.
	Publish(ctx context.Context, sessionID string, cases []testcase.TestCase) error
	// Consume returns the session's test cases, or false when there are none.
	Consume(ctx context.Context, sessionID string) ([]testcase.TestCase, bool)
	// Clear drops whatever the session holds.
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// Open returns the store selected by cfg.Handoff.Backend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Handoff.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.HandoffPath())
	default:
		return nil, fmt.Errorf("unknown handoff backend: %s", cfg.Handoff.Backend)
	}
}

func encodeCases(cases []testcase.TestCase) ([]byte, error) {
	if cases == nil {
		cases = []testcase.TestCase{}
	}
	if err := testcase.ValidateBatch(cases); err != nil {
		return nil, fmt.Errorf("refusing to publish invalid test cases: %w", err)
	}
	data, err := json.Marshal(cases)
	if err != nil {
		return nil, fmt.Errorf("failed to encode test cases: %w", err)
	}
	return data, nil
}

// decodeCases turns a stored payload back into test cases. Anything that is
// not a well-formed, valid batch counts as absent.
func decodeCases(sessionID string, data []byte) ([]testcase.TestCase, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var cases []testcase.TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		logging.HandoffDebug("Discarding corrupted hand-off for session %s: %v", sessionID, err)
		return nil, false
	}
	if cases == nil {
		logging.HandoffDebug("Discarding null hand-off for session %s", sessionID)
		return nil, false
	}
	if err := testcase.ValidateBatch(cases); err != nil {
		logging.HandoffDebug("Discarding invalid hand-off for session %s: %v", sessionID, err)
		return nil, false
	}
	return cases, true
}
