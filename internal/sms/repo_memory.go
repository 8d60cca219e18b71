package sms

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory SMS repository for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Create(ctx context.Context, m Message) (Message, error) {
	if m.UserID == "" || m.From == "" || m.To == "" {
		return Message{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.messages = append(r.messages, m)
	return m, nil
}

func (r *MemoryRepo) UpdateStatusByExternalID(ctx context.Context, externalMessageID string, status Status) error {
	if externalMessageID == "" || status == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ExternalMessageID == externalMessageID {
			r.messages[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Message, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
