package templates

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory template repository for tests.
type MemoryRepo struct {
	mu        sync.Mutex
	templates map[string]Template
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{templates: map[string]Template{}}
}

func (r *MemoryRepo) Create(ctx context.Context, t Template) (Template, error) {
	if err := validate(t); err != nil {
		return Template{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.templates[t.ID] = t
	return t, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Template, error) {
	if id == "" {
		return Template{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) ListForUser(ctx context.Context, userID string) ([]Template, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Template
	for _, t := range r.templates {
		if t.IsGlobal || t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
