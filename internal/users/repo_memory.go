package users

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory user repository for tests and early development.
type MemoryRepo struct {
	mu    sync.Mutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: map[string]User{}}
}

func (r *MemoryRepo) Put(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(u.Schedule) == 0 {
		u.Schedule = DefaultSchedule()
	}
	r.users[u.ID] = u
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) GetByAssignedNumber(ctx context.Context, number string) (User, error) {
	if number == "" {
		return User{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.AssignedNumber == number {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) UpdateSchedule(ctx context.Context, userID string, schedule []DaySchedule) error {
	if userID == "" || len(schedule) != 7 {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Schedule = append([]DaySchedule(nil), schedule...)
	r.users[userID] = u
	return nil
}
