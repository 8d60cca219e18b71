package automation

import (
	"context"
	"time"

	"telephony-backoffice/pkg/logger"
)

// Scheduler drives time-based automations by invoking ProcessScheduled once
// per tick. The tick should be one minute: scheduledTime conditions match
// the current minute exactly, so a slower tick silently skips fires and a
// faster one double-fires.
type Scheduler struct {
	Engine   *Engine
	Interval time.Duration
}

func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
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
			if _, err := s.Engine.ProcessScheduled(ctx); err != nil {
				logger.From(ctx).Error("process scheduled automations", "error", err)
			}
		}
	}
}
