package automation

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("automation: not found")
	ErrInvalidArgument = errors.New("automation: invalid argument")
)

// Repository stores automations and their counters.
type Repository interface {
	Create(ctx context.Context, a Automation) (Automation, error)
	Update(ctx context.Context, a Automation) (Automation, error)
	GetByID(ctx context.Context, id string) (Automation, error)
	ListByUser(ctx context.Context, userID string) ([]Automation, error)
	SetActive(ctx context.Context, userID, id string, active bool) error
	Delete(ctx context.Context, userID, id string) error

	// ListActiveByNumber returns active automations scoped to the given
	// provider number that carry at least one condition of the given types.
	ListActiveByNumber(ctx context.Context, phoneNumber string, types []ConditionType) ([]Automation, error)

	// ListActiveByTypes scans active automations across all numbers.
	ListActiveByTypes(ctx context.Context, types []ConditionType) ([]Automation, error)

	ListActiveByUser(ctx context.Context, userID string, types []ConditionType) ([]Automation, error)

	RecordTrigger(ctx context.Context, id string, at time.Time) error
	IncrementSuccess(ctx context.Context, id string) error
	IncrementError(ctx context.Context, id string) error
}

// ScheduleStore persists deferred actions.
type ScheduleStore interface {
	CreateScheduled(ctx context.Context, s ScheduledAction) (ScheduledAction, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]ScheduledAction, error)
	MarkStatus(ctx context.Context, id string, status ScheduledStatus) error
}

func hasConditionOfType(a Automation, types []ConditionType) bool {
	for _, c := range a.Conditions {
		for _, t := range types {
			if c.Type == t {
				return true
			}
		}
	}
	return false
}
