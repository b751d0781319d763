package aggregation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Scope selects how far back a graph window reaches.
type Scope string

const (
	ScopeDay   Scope = "day"
	ScopeWeek  Scope = "week"
	ScopeMonth Scope = "month"
)

// Scopes lists the supported scopes, narrowest first.
var Scopes = []Scope{ScopeDay, ScopeWeek, ScopeMonth}

// ErrInvalidScope marks untrusted scope input that names no known scope.
var ErrInvalidScope = errors.New("invalid scope")

// ParseScope converts untrusted input into a Scope. Empty input selects ScopeDay.
func ParseScope(s string) (Scope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ScopeDay, nil
	}
	for _, known := range Scopes {
		if Scope(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q (must be day, week, or month)", ErrInvalidScope, s)
}

// Calendar evaluates windows and buckets in a single location.
// Window starts and bucket keys are always computed in the same zone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a calendar for loc. A nil loc means time.Local.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{loc: loc}
}

// Location returns the zone the calendar reads wall-clock fields in.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// WindowStart returns the inclusive start of the scope window that contains now.
//
//	day:   local midnight of now's day
//	week:  local midnight six calendar days before now's day
//	month: local midnight of the first of now's month
//
// An unknown scope is a programming error and panics.
func (c Calendar) WindowStart(scope Scope, now time.Time) time.Time {
	local := now.In(c.Location())
	year, month, day := local.Date()

	switch scope {
	case ScopeDay:
		return time.Date(year, month, day, 0, 0, 0, 0, c.Location())
	case ScopeWeek:
		// time.Date normalizes day underflow into the previous month.
		return time.Date(year, month, day-6, 0, 0, 0, 0, c.Location())
	case ScopeMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, c.Location())
	default:
		panic(fmt.Sprintf("aggregation: unknown scope %q", string(scope)))
	}
}

// NextMidnight returns the first local midnight strictly after now.
func (c Calendar) NextMidnight(now time.Time) time.Time {
	local := now.In(c.Location())
	year, month, day := local.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, c.Location())
}
