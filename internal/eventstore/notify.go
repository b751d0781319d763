package eventstore

import (
	"time"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/aevon-lab/knocklog/internal/observability"
)

// ChangeKind names what happened to the log.
type ChangeKind string

const (
	ChangeLoaded   ChangeKind = "loaded"
	ChangeAppended ChangeKind = "appended"
	ChangeReset    ChangeKind = "reset"
	// ChangeRollover is published when the local day changes and every
	// "today" view has to be derived again.
	ChangeRollover ChangeKind = "rollover"
)

// Change is delivered to subscribers after each mutation.
// It carries only a summary; subscribers read Events for the log itself.
type Change struct {
	Kind    ChangeKind      `json:"kind"`
	Size    int             `json:"size"`
	Event   *v1.EventRecord `json:"event,omitempty"`
	Removed int             `json:"removed,omitempty"`
	At      time.Time       `json:"at"`
}

// Subscribe registers a listener with the given channel buffer.
// Delivery never blocks the writer: when the buffer is full the change is dropped.
// The returned cancel func unregisters the listener and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once bool
	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(s.subs, id)
		close(ch)
	}
	return ch, cancel
}

// Notify publishes a change of the given kind describing the current log.
func (s *Store) Notify(kind ChangeKind) {
	s.publish(Change{Kind: kind, Size: s.log.Len(), At: s.clock.Now()})
}

func (s *Store) publish(change Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
			observability.SubscriberDropsTotal.Inc()
		}
	}
}

// Subscribers returns the number of registered listeners.
func (s *Store) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}
