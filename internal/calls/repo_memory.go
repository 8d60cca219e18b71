package calls

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory call repository for tests and early development.
type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]Call // keyed by external_call_id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{calls: map[string]Call{}}
}

func (r *MemoryRepo) Create(ctx context.Context, c Call) (Call, error) {
	if c.UserID == "" || c.ExternalCallID == "" {
		return Call{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.calls[c.ExternalCallID]; ok {
		return existing, nil
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusInitiated
	}
	r.calls[c.ExternalCallID] = c
	return c, nil
}

func (r *MemoryRepo) GetByExternalID(ctx context.Context, externalCallID string) (Call, error) {
	if externalCallID == "" {
		return Call{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[externalCallID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, externalCallID string, status Status) error {
	return r.mutate(externalCallID, func(c *Call) { c.Status = status })
}

func (r *MemoryRepo) MarkEnded(ctx context.Context, externalCallID string, status Status, endTime time.Time, durationSeconds int) error {
	return r.mutate(externalCallID, func(c *Call) {
		c.Status = status
		c.EndTime = &endTime
		c.DurationSeconds = durationSeconds
	})
}

func (r *MemoryRepo) SetRecordingURL(ctx context.Context, externalCallID, url string) error {
	if url == "" {
		return ErrInvalidArgument
	}
	return r.mutate(externalCallID, func(c *Call) { c.RecordingURL = url })
}

func (r *MemoryRepo) SetVoicemailURL(ctx context.Context, externalCallID, url string) error {
	if url == "" {
		return ErrInvalidArgument
	}
	return r.mutate(externalCallID, func(c *Call) { c.VoicemailURL = url })
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Call, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) mutate(externalCallID string, fn func(*Call)) error {
	if externalCallID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[externalCallID]
	if !ok {
		return ErrNotFound
	}
	fn(&c)
	r.calls[externalCallID] = c
	return nil
}
