package clock

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Clock supplies the current instant and the local calendar it is read in.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// System reads the process wall clock in a fixed location.
type System struct {
	loc *time.Location
}

// NewSystem returns a wall clock reporting times in loc. A nil loc means time.Local.
func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.Local
	}
	return &System{loc: loc}
}

func (s *System) Now() time.Time           { return time.Now().In(s.loc) }
func (s *System) Location() *time.Location { return s.loc }

// LoadLocation resolves a configured timezone name.
// "" and "Local" map to the host zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Fixed is a manually driven clock for tests and replay.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
	loc *time.Location
}

// NewFixed returns a clock frozen at now, reported in loc. A nil loc means
// time.Local, as with NewSystem.
func NewFixed(now time.Time, loc *time.Location) *Fixed {
	if loc == nil {
		loc = time.Local
	}
	return &Fixed{now: now.In(loc), loc: loc}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Location() *time.Location { return f.loc }

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t.In(f.loc)
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
