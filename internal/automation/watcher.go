package automation

import (
	"context"
	"time"

	"telephony-backoffice/internal/users"
	"telephony-backoffice/pkg/logger"
)

type UserLister interface {
	List(ctx context.Context) ([]users.User, error)
}

type StatusChecker interface {
	IsAvailable(ctx context.Context, u users.User) (bool, error)
}

// AvailabilityWatcher polls each user's computed availability and fires
// availability automations on status flips. The first observation for a user
// only records a baseline; a restart therefore never replays old flips.
type AvailabilityWatcher struct {
	Engine   *Engine
	Users    UserLister
	Checker  StatusChecker
	Interval time.Duration

	prev map[string]bool
}

func (w *AvailabilityWatcher) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

func (w *AvailabilityWatcher) Tick(ctx context.Context) {
	log := logger.From(ctx)
	if w.prev == nil {
		w.prev = make(map[string]bool)
	}

	all, err := w.Users.List(ctx)
	if err != nil {
		log.Error("list users for availability watch", "error", err)
		return
	}
	for _, u := range all {
		available, err := w.Checker.IsAvailable(ctx, u)
		if err != nil {
			log.Error("availability check", "user_id", u.ID, "error", err)
			continue
		}
		last, seen := w.prev[u.ID]
		w.prev[u.ID] = available
		if !seen || last == available {
			continue
		}
		if _, err := w.Engine.ProcessAvailabilityChange(ctx, u.ID, available); err != nil {
			log.Error("availability automations", "user_id", u.ID, "error", err)
		}
	}
}
