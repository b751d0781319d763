package projection

import (
	"fmt"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/aevon-lab/knocklog/internal/core/aggregation"
	"github.com/aevon-lab/knocklog/internal/core/clock"
)

// EventReader exposes a read-only snapshot of the event log.
type EventReader interface {
	Events() []v1.EventRecord
}

// Service implements the read side: today's counts and the hourly graph.
// Every view is derived from a fresh snapshot; nothing is cached.
type Service struct {
	events   EventReader
	clock    clock.Clock
	calendar aggregation.Calendar
}

// NewService creates a new projection service.
func NewService(events EventReader, clk clock.Clock) *Service {
	if events == nil {
		panic("projection: event reader must not be nil")
	}
	if clk == nil {
		panic("projection: clock must not be nil")
	}
	return &Service{
		events:   events,
		clock:    clk,
		calendar: aggregation.NewCalendar(clk.Location()),
	}
}

// Today counts the events since local midnight.
func (s *Service) Today() TodayResponse {
	now := s.clock.Now()
	counts := s.calendar.CountToday(s.events.Events(), now)
	return TodayResponse{
		Since:  s.calendar.WindowStart(aggregation.ScopeDay, now),
		Counts: counts,
		Total:  counts.Total(),
		Shares: counts.Shares(),
	}
}

// Graph buckets the events of the scope's window by local hour.
// An empty scope selects the day view.
func (s *Service) Graph(scope string) (GraphResponse, error) {
	parsed, err := aggregation.ParseScope(scope)
	if err != nil {
		return GraphResponse{}, fmt.Errorf("graph query: %w", err)
	}

	windowStart := s.calendar.WindowStart(parsed, s.clock.Now())
	rows := s.calendar.Aggregate(s.events.Events(), windowStart)
	return GraphResponse{
		Scope:       parsed,
		WindowStart: windowStart,
		Rows:        rows,
		Series:      aggregation.Series(rows),
	}, nil
}
