package voicemail

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory voicemail repository for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	byCID map[string]Voicemail // keyed by external_call_id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byCID: map[string]Voicemail{}}
}

func (r *MemoryRepo) CreateOnce(ctx context.Context, v Voicemail) (Voicemail, bool, error) {
	if v.UserID == "" || v.ExternalCallID == "" || v.RecordingURL == "" {
		return Voicemail{}, false, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byCID[v.ExternalCallID]; ok {
		return existing, false, nil
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.IsNew = true
	r.byCID[v.ExternalCallID] = v
	return v, true, nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, userID, voicemailID string) error {
	if userID == "" || voicemailID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for cid, v := range r.byCID {
		if v.ID == voicemailID && v.UserID == userID {
			v.IsNew = false
			r.byCID[cid] = v
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Voicemail, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Voicemail
	for _, v := range r.byCID {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
