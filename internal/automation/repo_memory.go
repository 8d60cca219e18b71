package automation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository and ScheduleStore for tests
// and local development.
type MemoryRepository struct {
	mu        sync.RWMutex
	items     map[string]Automation
	scheduled map[string]ScheduledAction
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items:     make(map[string]Automation),
		scheduled: make(map[string]ScheduledAction),
	}
}

func (r *MemoryRepository) Create(_ context.Context, a Automation) (Automation, error) {
	if a.UserID == "" || a.Name == "" {
		return Automation{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.items[a.ID] = a
	return a, nil
}

func (r *MemoryRepository) Update(_ context.Context, a Automation) (Automation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[a.ID]
	if !ok || cur.UserID != a.UserID {
		return Automation{}, ErrNotFound
	}
	a.Stats = cur.Stats
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	r.items[a.ID] = a
	return a, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return Automation{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Automation
	for _, a := range r.items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) SetActive(_ context.Context, userID, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	a.IsActive = active
	a.UpdatedAt = time.Now().UTC()
	r.items[id] = a
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) ListActiveByNumber(_ context.Context, phoneNumber string, types []ConditionType) ([]Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Automation
	for _, a := range r.items {
		if a.IsActive && a.PhoneNumber == phoneNumber && hasConditionOfType(a, types) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) ListActiveByTypes(_ context.Context, types []ConditionType) ([]Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Automation
	for _, a := range r.items {
		if a.IsActive && hasConditionOfType(a, types) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) ListActiveByUser(_ context.Context, userID string, types []ConditionType) ([]Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Automation
	for _, a := range r.items {
		if a.IsActive && a.UserID == userID && hasConditionOfType(a, types) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) RecordTrigger(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	a.Stats.TimesTriggered++
	t := at.UTC()
	a.Stats.LastTriggered = &t
	r.items[id] = a
	return nil
}

func (r *MemoryRepository) IncrementSuccess(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	a.Stats.SuccessCount++
	r.items[id] = a
	return nil
}

func (r *MemoryRepository) IncrementError(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	a.Stats.ErrorCount++
	r.items[id] = a
	return nil
}

func (r *MemoryRepository) CreateScheduled(_ context.Context, s ScheduledAction) (ScheduledAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = ScheduledPending
	}
	s.CreatedAt = time.Now().UTC()
	r.scheduled[s.ID] = s
	return s, nil
}

func (r *MemoryRepository) ListDue(_ context.Context, now time.Time, limit int) ([]ScheduledAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ScheduledAction
	for _, s := range r.scheduled {
		if s.Status == ScheduledPending && !s.DueAt.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) MarkStatus(_ context.Context, id string, status ScheduledStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scheduled[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	r.scheduled[id] = s
	return nil
}
