package aggregation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var tokyo = time.FixedZone("JST", 9*60*60)

func TestParseScope(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Scope
		wantError bool
	}{
		{name: "day", input: "day", want: ScopeDay},
		{name: "week upper case", input: "WEEK", want: ScopeWeek},
		{name: "month", input: " month ", want: ScopeMonth},
		{name: "empty defaults to day", input: "", want: ScopeDay},
		{name: "year invalid", input: "year", wantError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseScope(tc.input)
			if tc.wantError {
				require.ErrorIs(t, err, ErrInvalidScope)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestCalendar_WindowStart(t *testing.T) {
	cal := NewCalendar(tokyo)

	tests := []struct {
		name  string
		scope Scope
		now   time.Time
		want  time.Time
	}{
		{
			name:  "day truncates to local midnight",
			scope: ScopeDay,
			now:   time.Date(2026, 2, 11, 12, 34, 56, 789, tokyo),
			want:  time.Date(2026, 2, 11, 0, 0, 0, 0, tokyo),
		},
		{
			name:  "day uses local date of a UTC instant",
			scope: ScopeDay,
			now:   time.Date(2026, 2, 10, 20, 0, 0, 0, time.UTC), // 05:00 on the 11th in Tokyo
			want:  time.Date(2026, 2, 11, 0, 0, 0, 0, tokyo),
		},
		{
			name:  "week reaches six days back",
			scope: ScopeWeek,
			now:   time.Date(2026, 2, 11, 8, 0, 0, 0, tokyo),
			want:  time.Date(2026, 2, 5, 0, 0, 0, 0, tokyo),
		},
		{
			name:  "week crosses a month boundary",
			scope: ScopeWeek,
			now:   time.Date(2026, 3, 3, 23, 59, 0, 0, tokyo),
			want:  time.Date(2026, 2, 25, 0, 0, 0, 0, tokyo),
		},
		{
			name:  "month starts on the first",
			scope: ScopeMonth,
			now:   time.Date(2026, 3, 5, 18, 0, 0, 0, tokyo),
			want:  time.Date(2026, 3, 1, 0, 0, 0, 0, tokyo),
		},
		{
			name:  "month on the first at midnight",
			scope: ScopeMonth,
			now:   time.Date(2026, 3, 1, 0, 0, 0, 0, tokyo),
			want:  time.Date(2026, 3, 1, 0, 0, 0, 0, tokyo),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cal.WindowStart(tc.scope, tc.now)
			require.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
			require.Equal(t, tokyo, got.Location())
		})
	}
}

func TestCalendar_WindowStartPanicsOnUnknownScope(t *testing.T) {
	cal := NewCalendar(tokyo)
	require.Panics(t, func() {
		cal.WindowStart(Scope("fortnight"), time.Now())
	})
}

func TestCalendar_NextMidnight(t *testing.T) {
	cal := NewCalendar(tokyo)

	got := cal.NextMidnight(time.Date(2026, 2, 28, 23, 59, 59, 0, tokyo))
	require.True(t, time.Date(2026, 3, 1, 0, 0, 0, 0, tokyo).Equal(got))

	got = cal.NextMidnight(time.Date(2026, 3, 1, 0, 0, 0, 0, tokyo))
	require.True(t, time.Date(2026, 3, 2, 0, 0, 0, 0, tokyo).Equal(got))
}

func TestNewCalendar_NilLocationIsLocal(t *testing.T) {
	require.Equal(t, time.Local, NewCalendar(nil).Location())
	require.Equal(t, time.Local, Calendar{}.Location())
}
