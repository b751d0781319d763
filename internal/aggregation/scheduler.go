package aggregation

import (
	"context"
	"log/slog"
	"time"

	"github.com/aevon-lab/knocklog/internal/core/aggregation"
	"github.com/aevon-lab/knocklog/internal/core/clock"
	"github.com/aevon-lab/knocklog/internal/eventstore"
)

// Notifier receives the day-rollover signal.
type Notifier interface {
	Notify(kind eventstore.ChangeKind)
}

// Scheduler publishes a rollover change at every local midnight so views
// derived from "today" are recomputed even when no event arrives.
type Scheduler struct {
	clock    clock.Clock
	calendar aggregation.Calendar
	target   Notifier

	afterFn func(time.Duration) <-chan time.Time
}

// NewScheduler creates a rollover scheduler reading time from clk.
func NewScheduler(clk clock.Clock, target Notifier) *Scheduler {
	if clk == nil {
		panic("aggregation: clock must not be nil")
	}
	if target == nil {
		panic("aggregation: notifier must not be nil")
	}
	return &Scheduler{
		clock:    clk,
		calendar: aggregation.NewCalendar(clk.Location()),
		target:   target,
		afterFn:  time.After,
	}
}

// NextRollover returns the instant of the next local midnight after now.
func (s *Scheduler) NextRollover(now time.Time) time.Time {
	return s.calendar.NextMidnight(now)
}

// Start blocks, firing one rollover per local midnight, until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("[Rollover] Starting day rollover scheduler", "location", s.calendar.Location().String())

	for {
		now := s.clock.Now()
		next := s.NextRollover(now)
		wait := next.Sub(now)

		slog.Debug("[Rollover] Waiting for next local midnight", "at", next, "wait", wait)

		select {
		case <-s.afterFn(wait):
			slog.Info("[Rollover] Local day changed", "day", next.Format("2006-01-02"))
			s.target.Notify(eventstore.ChangeRollover)
		case <-ctx.Done():
			slog.Info("[Rollover] Stopping (context cancelled)")
			return nil
		}
	}
}
