package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
)

// EventLogVersion is the envelope version written by EncodeEventLog.
const EventLogVersion = 1

// ErrUnsupportedVersion is returned for envelopes written by a newer release.
var ErrUnsupportedVersion = errors.New("unsupported event log version")

// eventLogEnvelope is the versioned on-disk shape.
// Version 0 is the bare JSON array written before envelopes existed.
type eventLogEnvelope struct {
	Version int              `json:"version"`
	Events  []v1.EventRecord `json:"events"`
}

// DecodeResult describes what DecodeEventLog recovered from a blob.
type DecodeResult struct {
	Events  []v1.EventRecord
	Version int
	// Skipped counts records dropped for an unknown category or bad timestamp.
	Skipped int
}

// EncodeEventLog serializes the log into the current envelope format.
func EncodeEventLog(events []v1.EventRecord) (string, error) {
	if events == nil {
		events = []v1.EventRecord{}
	}
	raw, err := json.Marshal(eventLogEnvelope{
		Version: EventLogVersion,
		Events:  events,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode event log: %w", err)
	}
	return string(raw), nil
}

// DecodeEventLog parses an envelope or a legacy bare array.
// Whitespace-only input decodes to an empty log.
func DecodeEventLog(blob string) (DecodeResult, error) {
	trimmed := bytes.TrimSpace([]byte(blob))
	if len(trimmed) == 0 {
		return DecodeResult{Events: []v1.EventRecord{}, Version: EventLogVersion}, nil
	}

	var (
		records []v1.EventRecord
		version int
	)

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return DecodeResult{}, fmt.Errorf("failed to decode legacy event array: %w", err)
		}
	case '{':
		var env eventLogEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return DecodeResult{}, fmt.Errorf("failed to decode event log envelope: %w", err)
		}
		if env.Version <= 0 {
			return DecodeResult{}, fmt.Errorf("event log envelope has no version")
		}
		if env.Version > EventLogVersion {
			return DecodeResult{}, fmt.Errorf("%w: %d (newest known %d)", ErrUnsupportedVersion, env.Version, EventLogVersion)
		}
		records = env.Events
		version = env.Version
	default:
		return DecodeResult{}, fmt.Errorf("event log is neither an array nor an object")
	}

	result := DecodeResult{
		Events:  make([]v1.EventRecord, 0, len(records)),
		Version: version,
	}
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			result.Skipped++
			continue
		}
		result.Events = append(result.Events, rec)
	}
	return result, nil
}
