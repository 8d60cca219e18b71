package availability

import (
	"context"
	"time"

	"telephony-backoffice/internal/calendar"
	"telephony-backoffice/internal/users"
)

// Available decides whether the user is reachable at now.
//
// Evaluation order:
//  1. Calendar block: if the user has calendar integration on and blocks
//     during events, any non-cancelled event with make_unavailable covering
//     now wins over the weekly schedule.
//  2. Weekly schedule: the weekday record must exist and be marked available.
//  3. Time window: HH:MM lexicographic comparison on zero-padded 24-hour
//     strings. A window crossing midnight (22:00-02:00) is never satisfied;
//     that boundary behavior is deliberate and covered by tests.
//
// Pure function of its inputs. No side effects.
func Available(u users.User, events []calendar.Event, now time.Time) bool {
	if u.CalendarEnabled && u.BlockDuringEvents {
		for _, e := range events {
			if e.Status == calendar.EventStatusCancelled || !e.MakeUnavailable {
				continue
			}
			if !now.Before(e.StartTime) && !now.After(e.EndTime) {
				return false
			}
		}
	}

	day := now.Weekday().String()
	timeOfDay := now.Format("15:04")

	for _, d := range u.Schedule {
		if d.Day != day {
			continue
		}
		if !d.IsAvailable {
			return false
		}
		return timeOfDay >= d.StartTime && timeOfDay <= d.EndTime
	}
	return false
}

// Checker resolves the inputs Available needs from storage. Nothing is
// cached; every call recomputes from the current user record and event cache.
type Checker struct {
	Users  users.Repository
	Events calendar.EventStore
	Now    func() time.Time
}

func NewChecker(users users.Repository, events calendar.EventStore) *Checker {
	return &Checker{Users: users, Events: events, Now: time.Now}
}

func (c *Checker) IsAvailable(ctx context.Context, u users.User) (bool, error) {
	var events []calendar.Event
	if u.CalendarEnabled && u.BlockDuringEvents && c.Events != nil {
		var err error
		events, err = c.Events.ListEvents(ctx, u.ID)
		if err != nil {
			return false, err
		}
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	return Available(u, events, now), nil
}

// IsAvailableByID is the lookup-first variant used by availability-triggered
// automations.
func (c *Checker) IsAvailableByID(ctx context.Context, userID string) (bool, error) {
	u, err := c.Users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return c.IsAvailable(ctx, u)
}
