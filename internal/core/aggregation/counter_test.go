package aggregation

import (
	"testing"
	"time"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/stretchr/testify/require"
)

func TestNewCounts_ZeroFilled(t *testing.T) {
	counts := NewCounts()
	require.Len(t, counts, len(v1.Categories))
	for _, c := range v1.Categories {
		require.Equal(t, 0, counts.Get(c))
	}
	require.Equal(t, 0, counts.Total())
}

func TestCounts_Shares(t *testing.T) {
	counts := NewCounts()
	counts.Add(v1.CategoryPing)
	counts.Add(v1.CategoryPing)
	counts.Add(v1.CategoryAnswered)

	shares := counts.Shares()
	require.Equal(t, "0.6667", shares[v1.CategoryPing].String())
	require.Equal(t, "0.3333", shares[v1.CategoryAnswered].String())
	require.Equal(t, "0", shares[v1.CategoryEntrance].String())
}

func TestCounts_SharesWithoutEvents(t *testing.T) {
	shares := NewCounts().Shares()
	require.Len(t, shares, len(v1.Categories))
	for _, share := range shares {
		require.True(t, share.IsZero())
	}
}

func TestCalendar_CountToday(t *testing.T) {
	cal := NewCalendar(tokyo)
	now := time.Date(2026, 2, 11, 7, 0, 0, 0, tokyo)

	events := []v1.EventRecord{
		at(v1.CategoryPing, time.Date(2026, 2, 10, 23, 59, 59, 0, tokyo)),
		at(v1.CategoryPing, time.Date(2026, 2, 11, 0, 0, 0, 0, tokyo)),
		at(v1.CategoryEntrance, time.Date(2026, 2, 11, 6, 45, 0, 0, tokyo)),
		at(v1.CategoryEntrance, time.Date(2026, 2, 11, 6, 50, 0, 0, tokyo)),
	}

	counts := cal.CountToday(events, now)
	require.Equal(t, 1, counts.Get(v1.CategoryPing))
	require.Equal(t, 0, counts.Get(v1.CategoryAnswered))
	require.Equal(t, 2, counts.Get(v1.CategoryEntrance))
	require.Equal(t, 3, counts.Total())
}

func TestCalendar_CountTodayEmpty(t *testing.T) {
	counts := NewCalendar(tokyo).CountToday(nil, time.Now())
	require.Len(t, counts, len(v1.Categories))
	require.Equal(t, 0, counts.Total())
}
