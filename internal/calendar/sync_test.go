package calendar

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubProvider struct {
	events []Event
	err    error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) ListUpcomingEvents(context.Context, string) ([]Event, error) {
	return s.events, s.err
}

func TestSyncUserReplacesCache(t *testing.T) {
	store := NewMemoryStore()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := store.ReplaceEvents(context.Background(), "u1", []Event{
		{EventID: "old", Title: "stale", StartTime: start, EndTime: start.Add(time.Hour)},
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	p := &stubProvider{events: []Event{
		{EventID: "e1", Title: "standup", StartTime: start, EndTime: start.Add(30 * time.Minute), Status: EventStatusConfirmed, MakeUnavailable: true},
		{EventID: "e2", Title: "review", StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour), Status: EventStatusTentative},
	}}
	svc := NewSyncService(p, store)

	n, err := svc.SyncUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SyncUser: %v", err)
	}
	if n != 2 {
		t.Fatalf("synced %d events, want 2", n)
	}

	got, err := store.ListEvents(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d cached events, want 2", len(got))
	}
	for _, e := range got {
		if e.EventID == "old" {
			t.Errorf("stale event survived the sync")
		}
		if e.UserID != "u1" {
			t.Errorf("event %s user_id = %q", e.EventID, e.UserID)
		}
	}
}

func TestSyncUserProviderFailureKeepsCache(t *testing.T) {
	store := NewMemoryStore()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if err := store.ReplaceEvents(context.Background(), "u1", []Event{
		{EventID: "e1", UserID: "u1", Title: "kept", StartTime: start, EndTime: start.Add(time.Hour)},
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	svc := NewSyncService(&stubProvider{err: errors.New("upstream 503")}, store)
	if _, err := svc.SyncUser(context.Background(), "u1"); err == nil {
		t.Fatalf("SyncUser succeeded despite provider failure")
	}

	got, _ := store.ListEvents(context.Background(), "u1")
	if len(got) != 1 || got[0].EventID != "e1" {
		t.Fatalf("failed sync touched the cache: %+v", got)
	}
}

func TestSyncUserRequiresUser(t *testing.T) {
	svc := NewSyncService(&stubProvider{}, NewMemoryStore())
	if _, err := svc.SyncUser(context.Background(), ""); err == nil {
		t.Fatalf("SyncUser accepted empty user id")
	}
}
