package automation

import (
	"context"
	"errors"
	"time"

	"telephony-backoffice/pkg/logger"
)

const dispatchBatchSize = 100

// Dispatcher executes deferred actions when they come due. Because due rows
// are read from storage on every tick, pending actions scheduled before a
// restart are picked up again without extra re-arming.
type Dispatcher struct {
	Engine   *Engine
	Schedule ScheduleStore
	Repo     Repository

	Interval time.Duration
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick processes one batch of due actions.
func (d *Dispatcher) Tick(ctx context.Context) {
	log := logger.From(ctx)
	due, err := d.Schedule.ListDue(ctx, d.Engine.now(), dispatchBatchSize)
	if err != nil {
		log.Error("list due actions", "error", err)
		return
	}
	for _, s := range due {
		d.dispatch(ctx, s)
	}
}

// dispatch runs one scheduled action. The owning automation is re-read at
// fire time: actions scheduled while active are skipped if the automation
// was deactivated or deleted in the meantime.
func (d *Dispatcher) dispatch(ctx context.Context, s ScheduledAction) {
	log := logger.From(ctx).With("scheduled_action_id", s.ID, "automation_id", s.AutomationID)

	a, err := d.Repo.GetByID(ctx, s.AutomationID)
	switch {
	case errors.Is(err, ErrNotFound):
		d.mark(ctx, s.ID, ScheduledSkipped)
		return
	case err != nil:
		log.Error("load automation", "error", err)
		return // retried next tick
	case !a.IsActive:
		d.mark(ctx, s.ID, ScheduledSkipped)
		return
	}

	ran, err := d.Engine.runAction(ctx, s.Action, s.Context)
	switch {
	case err != nil:
		log.Error("deferred action failed", "action_type", s.Action.Type, "error", err)
		if ierr := d.Repo.IncrementError(ctx, s.AutomationID); ierr != nil {
			log.Error("increment error count", "error", ierr)
		}
		d.mark(ctx, s.ID, ScheduledFailed)
	case ran:
		if ierr := d.Repo.IncrementSuccess(ctx, s.AutomationID); ierr != nil {
			log.Error("increment success count", "error", ierr)
		}
		d.mark(ctx, s.ID, ScheduledDone)
	default:
		d.mark(ctx, s.ID, ScheduledSkipped)
	}
}

func (d *Dispatcher) mark(ctx context.Context, id string, status ScheduledStatus) {
	if err := d.Schedule.MarkStatus(ctx, id, status); err != nil {
		logger.From(ctx).Error("mark scheduled action", "scheduled_action_id", id, "status", status, "error", err)
	}
}
