package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	require.Equal(t, time.Local, loc)

	loc, err = LoadLocation("Local")
	require.NoError(t, err)
	require.Equal(t, time.Local, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	require.Equal(t, "UTC", loc.String())

	_, err = LoadLocation("Mars/Olympus_Mons")
	require.Error(t, err)
}

func TestFixed(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	start := time.Date(2026, 2, 11, 23, 59, 0, 0, loc)

	c := NewFixed(start, loc)
	require.True(t, c.Now().Equal(start))
	require.Equal(t, loc, c.Location())

	c.Advance(2 * time.Minute)
	require.Equal(t, 12, c.Now().Day())
	require.Equal(t, 0, c.Now().Hour())

	c.Set(start.UTC())
	require.Equal(t, loc, c.Now().Location())
}

func TestNilLocationDefaultsToLocal(t *testing.T) {
	require.Equal(t, time.Local, NewFixed(time.Unix(0, 0), nil).Location())
	require.Equal(t, time.Local, NewSystem(nil).Location())
}
