package v1

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is the kind of doorbell interaction an event records.
type Category string

const (
	CategoryPing     Category = "ping"
	CategoryAnswered Category = "answered"
	CategoryEntrance Category = "entrance"
)

// Categories is the closed set of known categories in display order.
// Adding a category means adding a constant above and listing it here.
var Categories = []Category{
	CategoryPing,
	CategoryAnswered,
	CategoryEntrance,
}

// ErrInvalidCategory is returned when a string does not name a known category.
var ErrInvalidCategory = errors.New("invalid event category")

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts untrusted input into a Category.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q (must be one of %s)", ErrInvalidCategory, s, categoryList())
	}
	return c, nil
}

func categoryList() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// EventRecord is one logged doorbell interaction.
// Records are immutable once created; the log only grows or is purged by day.
type EventRecord struct {
	// Type is the interaction category.
	Type Category `json:"type"`

	// Timestamp is the wall-clock creation time in milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// NewEventRecord stamps a record of category c at instant at.
func NewEventRecord(c Category, at time.Time) EventRecord {
	return EventRecord{Type: c, Timestamp: at.UnixMilli()}
}

// Time returns the record timestamp in loc.
func (e EventRecord) Time(loc *time.Location) time.Time {
	return time.UnixMilli(e.Timestamp).In(loc)
}

// Validate ensures the record carries a known category and a positive timestamp.
func (e EventRecord) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Type)
	}
	if e.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive, got %d", e.Timestamp)
	}
	return nil
}
