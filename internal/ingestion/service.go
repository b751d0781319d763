package ingestion

import (
	"context"
	"time"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/aevon-lab/knocklog/internal/core/aggregation"
	"github.com/aevon-lab/knocklog/internal/core/clock"
	"github.com/aevon-lab/knocklog/internal/eventstore"
	"github.com/gin-gonic/gin"
)

// EventStore is the mutation side of the event log.
type EventStore interface {
	Events() []v1.EventRecord
	Append(ctx context.Context, c v1.Category) ([]v1.EventRecord, error)
	ResetToday(ctx context.Context, now time.Time) ([]v1.EventRecord, int, error)
	Subscribe(buffer int) (<-chan eventstore.Change, func())
}

const streamBuffer = 16

type Service struct {
	store            EventStore
	clock            clock.Clock
	calendar         aggregation.Calendar
	maxBodySizeBytes int
}

func NewService(store EventStore, clk clock.Clock, maxBodySizeKB int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if clk == nil {
		panic("ingestion: clock must not be nil")
	}
	if maxBodySizeKB <= 0 {
		maxBodySizeKB = 16 // default to 16KB
	}
	return &Service{
		store:            store,
		clock:            clk,
		calendar:         aggregation.NewCalendar(clk.Location()),
		maxBodySizeBytes: maxBodySizeKB * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.AddEventHandler)
	r.GET("/v1/events", s.ListEventsHandler)
	r.DELETE("/v1/events/today", s.ResetTodayHandler)
	r.GET("/v1/events/stream", s.StreamHandler)
}
