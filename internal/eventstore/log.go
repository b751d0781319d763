package eventstore

import (
	"sync"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
)

// Log is the in-memory projection of the persisted event log.
// The slice it holds is never modified in place: writers swap in a new slice,
// so a reader always sees either the old or the new log in full.
type Log struct {
	mu     sync.RWMutex
	events []v1.EventRecord
}

// Snapshot returns a copy of the current log in insertion order.
func (l *Log) Snapshot() []v1.EventRecord {
	l.mu.RLock()
	current := l.events
	l.mu.RUnlock()

	return cloneEvents(current)
}

// Len returns the number of records in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// current returns the live slice. Callers must not modify it.
func (l *Log) current() []v1.EventRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events
}

func (l *Log) replace(events []v1.EventRecord) {
	l.mu.Lock()
	l.events = events
	l.mu.Unlock()
}

func cloneEvents(events []v1.EventRecord) []v1.EventRecord {
	out := make([]v1.EventRecord, len(events))
	copy(out, events)
	return out
}
