package aggregation

import (
	"time"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/shopspring/decimal"
)

// shareScale is the number of decimal places kept in category shares.
const shareScale = 4

// Counts maps each category to its number of events.
// Values built with NewCounts always hold every known category.
type Counts map[v1.Category]int

// NewCounts returns counts with every category set to zero.
func NewCounts() Counts {
	counts := make(Counts, len(v1.Categories))
	for _, c := range v1.Categories {
		counts[c] = 0
	}
	return counts
}

// Add counts one event of category c.
func (c Counts) Add(category v1.Category) {
	c[category]++
}

// Get returns the count for category, zero when absent.
func (c Counts) Get(category v1.Category) int {
	return c[category]
}

// Total is the sum over all categories.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Shares returns each category's fraction of Total, rounded to four places.
// All shares are zero when there are no events.
func (c Counts) Shares() map[v1.Category]decimal.Decimal {
	total := c.Total()
	shares := make(map[v1.Category]decimal.Decimal, len(v1.Categories))
	for _, category := range v1.Categories {
		if total == 0 {
			shares[category] = decimal.Zero
			continue
		}
		shares[category] = decimal.NewFromInt(int64(c.Get(category))).
			DivRound(decimal.NewFromInt(int64(total)), shareScale)
	}
	return shares
}

// CountToday tallies events since local midnight of now's day.
func (c Calendar) CountToday(events []v1.EventRecord, now time.Time) Counts {
	startMs := c.WindowStart(ScopeDay, now).UnixMilli()

	counts := NewCounts()
	for _, evt := range events {
		if evt.Timestamp >= startMs {
			counts.Add(evt.Type)
		}
	}
	return counts
}
