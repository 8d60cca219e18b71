package calendar

import (
	"context"
	"errors"
	"fmt"

	"telephony-backoffice/pkg/logger"
)

var ErrNotFound = errors.New("calendar: not found")

// EventStore persists the cached event copies.
type EventStore interface {
	// ReplaceEvents swaps the user's cached event list in one shot.
	ReplaceEvents(ctx context.Context, userID string, events []Event) error

	ListEvents(ctx context.Context, userID string) ([]Event, error)
}

// SyncService refreshes the cached events for a user from their provider.
//
// The cache is a full replacement: whatever the provider returns becomes the
// user's event list, and stale rows disappear with it. A failed sync leaves
// the previous cache untouched.
type SyncService struct {
	Provider Provider
	Store    EventStore
}

func NewSyncService(p Provider, s EventStore) *SyncService {
	return &SyncService{Provider: p, Store: s}
}

func (s *SyncService) SyncUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("calendar: user_id required")
	}
	if s.Provider == nil || s.Store == nil {
		return 0, errors.New("calendar: sync service not configured")
	}

	events, err := s.Provider.ListUpcomingEvents(ctx, userID)
	if err != nil {
		logger.From(ctx).Warn("calendar sync failed", "user_id", userID, "provider", s.Provider.Name(), "err", err)
		return 0, fmt.Errorf("calendar sync: %w", err)
	}

	for i := range events {
		events[i].UserID = userID
	}
	if err := s.Store.ReplaceEvents(ctx, userID, events); err != nil {
		return 0, fmt.Errorf("calendar store: %w", err)
	}
	return len(events), nil
}
