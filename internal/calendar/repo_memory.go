package calendar

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore is an in-memory event cache for tests and early development.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string][]Event // user_id -> events
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: map[string][]Event{}}
}

func (s *MemoryStore) ReplaceEvents(ctx context.Context, userID string, events []Event) error {
	if userID == "" {
		return errors.New("user_id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Event, len(events))
	copy(cp, events)
	s.events[userID] = cp
	return nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, userID string) ([]Event, error) {
	if userID == "" {
		return nil, errors.New("user_id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events[userID]))
	copy(out, s.events[userID])
	return out, nil
}
