package handoff

import (
	"context"
	"sdlcpilot/internal/logging"
	"sdlcpilot/internal/testcase"
	"sync"
)

// MemoryStore keeps hand-offs for the lifetime of the process. Values are
// held serialized so consumers never share slices with the producer.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Publish implements Store.
func (s *MemoryStore) Publish(ctx context.Context, sessionID string, cases []testcase.TestCase) error {
	data, err := encodeCases(cases)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[sessionID] = data
	s.mu.Unlock()

	logging.HandoffDebug("Published %d test cases for session %s (memory)", len(cases), sessionID)
	return nil
}

// Consume implements Store.
func (s *MemoryStore) Consume(ctx context.Context, sessionID string) ([]testcase.TestCase, bool) {
	s.mu.RLock()
	data, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return decodeCases(sessionID, data)
}

// Clear implements Store.
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.data, sessionID)
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
