package ingestion

import (
	"log/slog"

	"github.com/aevon-lab/knocklog/internal/eventstore"
	"github.com/gin-gonic/gin"
)

// StreamHandler handles GET /v1/events/stream as server-sent events.
// The first message describes the current log; every store change follows.
func (s *Service) StreamHandler(c *gin.Context) {
	changes, cancel := s.store.Subscribe(streamBuffer)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("snapshot", eventstore.Change{
		Kind: eventstore.ChangeLoaded,
		Size: len(s.store.Events()),
		At:   s.clock.Now(),
	})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Event stream client disconnected")
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			c.SSEvent(string(change.Kind), change)
			c.Writer.Flush()
		}
	}
}
