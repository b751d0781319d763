package storage

import (
	"testing"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/stretchr/testify/require"
)

func TestEncodeEventLog(t *testing.T) {
	blob, err := EncodeEventLog([]v1.EventRecord{
		{Type: v1.CategoryPing, Timestamp: 1770800400000},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"version":1,"events":[{"type":"ping","timestamp":1770800400000}]}`, blob)

	empty, err := EncodeEventLog(nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":1,"events":[]}`, empty)
}

func TestDecodeEventLog(t *testing.T) {
	tests := []struct {
		name        string
		blob        string
		wantEvents  []v1.EventRecord
		wantVersion int
		wantSkipped int
		wantErr     bool
	}{
		{
			name:        "current envelope",
			blob:        `{"version":1,"events":[{"type":"answered","timestamp":5}]}`,
			wantEvents:  []v1.EventRecord{{Type: v1.CategoryAnswered, Timestamp: 5}},
			wantVersion: 1,
		},
		{
			name: "legacy bare array",
			blob: `[{"type":"ping","timestamp":1},{"type":"entrance","timestamp":2}]`,
			wantEvents: []v1.EventRecord{
				{Type: v1.CategoryPing, Timestamp: 1},
				{Type: v1.CategoryEntrance, Timestamp: 2},
			},
			wantVersion: 0,
		},
		{
			name:        "blank blob is empty",
			blob:        "  \n",
			wantEvents:  []v1.EventRecord{},
			wantVersion: EventLogVersion,
		},
		{
			name:        "unknown categories are skipped",
			blob:        `[{"type":"ping","timestamp":1},{"type":"knock","timestamp":2},{"type":"ping","timestamp":0}]`,
			wantEvents:  []v1.EventRecord{{Type: v1.CategoryPing, Timestamp: 1}},
			wantSkipped: 2,
		},
		{name: "truncated json", blob: `[{"type":"ping","timest`, wantErr: true},
		{name: "not a list", blob: `"events"`, wantErr: true},
		{name: "envelope without version", blob: `{"events":[]}`, wantErr: true},
		{name: "newer envelope", blob: `{"version":9,"events":[]}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeEventLog(tc.blob)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantEvents, got.Events)
			require.Equal(t, tc.wantVersion, got.Version)
			require.Equal(t, tc.wantSkipped, got.Skipped)
		})
	}
}

func TestDecodeEventLog_NewerVersionIsTyped(t *testing.T) {
	_, err := DecodeEventLog(`{"version":2,"events":[]}`)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestEventLogRoundTrip(t *testing.T) {
	events := []v1.EventRecord{
		{Type: v1.CategoryEntrance, Timestamp: 1770800400000},
		{Type: v1.CategoryPing, Timestamp: 1770796800000},
	}
	blob, err := EncodeEventLog(events)
	require.NoError(t, err)

	got, err := DecodeEventLog(blob)
	require.NoError(t, err)
	require.Equal(t, events, got.Events)
}

func TestValidateKey(t *testing.T) {
	require.NoError(t, ValidateKey("events"))
	require.NoError(t, ValidateKey("events.v2"))
	require.Error(t, ValidateKey(""))
	require.Error(t, ValidateKey("../events"))
	require.Error(t, ValidateKey("a/b"))
	require.Error(t, ValidateKey(".hidden"))
}
