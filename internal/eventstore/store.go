package eventstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/aevon-lab/knocklog/internal/core/aggregation"
	"github.com/aevon-lab/knocklog/internal/core/clock"
	corerr "github.com/aevon-lab/knocklog/internal/core/errors"
	"github.com/aevon-lab/knocklog/internal/core/storage"
	"github.com/aevon-lab/knocklog/internal/observability"
	"github.com/cenkalti/backoff/v4"
)

const (
	defaultWriteInitialBackoff = 50 * time.Millisecond
	defaultWriteTimeout        = 10 * time.Second
	maxWriteBackoff            = 2 * time.Second
)

// Options tunes how the store persists the log.
type Options struct {
	// Key is the storage key holding the log blob.
	Key string

	// WriteMaxAttempts bounds persist attempts per mutation. 1 disables retry.
	WriteMaxAttempts int

	// WriteInitialBackoff is the wait before the first retry; later waits grow exponentially.
	WriteInitialBackoff time.Duration

	// WriteTimeout bounds one persist including retries. It runs detached from
	// the caller's context, so a disconnected client cannot abort the write.
	WriteTimeout time.Duration
}

func (o Options) normalized() Options {
	if o.Key == "" {
		o.Key = storage.DefaultEventsKey
	}
	if o.WriteMaxAttempts < 1 {
		o.WriteMaxAttempts = 1
	}
	if o.WriteInitialBackoff <= 0 {
		o.WriteInitialBackoff = defaultWriteInitialBackoff
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	return o
}

// Store owns the canonical event log and its durable copy.
//
// Mutations are serialized by writeMu across update, persist, and publish,
// so concurrent appends never lose each other's records. Reads go through
// Log snapshots and never wait on storage I/O.
type Store struct {
	kv       storage.KeyValueStore
	clock    clock.Clock
	calendar aggregation.Calendar
	opts     Options

	writeMu sync.Mutex
	log     Log

	subMu     sync.Mutex
	subs      map[int]chan Change
	nextSubID int
}

// New creates a store over kv. The log starts empty until Load is called.
func New(kv storage.KeyValueStore, clk clock.Clock, opts Options) *Store {
	if kv == nil {
		panic("eventstore: key-value store must not be nil")
	}
	if clk == nil {
		panic("eventstore: clock must not be nil")
	}
	return &Store{
		kv:       kv,
		clock:    clk,
		calendar: aggregation.NewCalendar(clk.Location()),
		opts:     opts.normalized(),
		subs:     make(map[int]chan Change),
	}
}

// Key returns the storage key the log is persisted under.
func (s *Store) Key() string { return s.opts.Key }

// Events returns a read-only snapshot of the log.
func (s *Store) Events() []v1.EventRecord {
	return s.log.Snapshot()
}

// Load replaces the in-memory log with the persisted one.
// Missing data yields an empty log. Unreadable or corrupt data is logged and
// also yields an empty log; it is never returned as an error.
func (s *Store) Load(ctx context.Context) []v1.EventRecord {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	events := s.read(ctx)
	s.log.replace(events)
	observability.EventLogSize.Set(float64(len(events)))

	slog.Info("[EventStore] Log loaded", "key", s.opts.Key, "events", len(events))
	s.publish(Change{Kind: ChangeLoaded, Size: len(events), At: s.clock.Now()})

	return cloneEvents(events)
}

func (s *Store) read(ctx context.Context) []v1.EventRecord {
	blob, err := s.kv.Get(ctx, s.opts.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.Info("[EventStore] No persisted log found, starting empty", "key", s.opts.Key)
			return []v1.EventRecord{}
		}
		s.readFailed(&corerr.StorageReadError{Key: s.opts.Key, Err: err})
		return []v1.EventRecord{}
	}

	result, err := storage.DecodeEventLog(blob)
	if err != nil {
		s.readFailed(&corerr.StorageReadError{Key: s.opts.Key, Err: err})
		return []v1.EventRecord{}
	}

	if result.Skipped > 0 {
		slog.Warn("[EventStore] Dropped unreadable records from persisted log",
			"key", s.opts.Key,
			"skipped", result.Skipped,
			"kept", len(result.Events))
	}
	if result.Version < storage.EventLogVersion {
		slog.Info("[EventStore] Loaded legacy log format, next write upgrades it",
			"key", s.opts.Key,
			"version", result.Version)
	}
	return result.Events
}

func (s *Store) readFailed(err *corerr.StorageReadError) {
	observability.StorageLoadFailuresTotal.Inc()
	slog.Warn("[EventStore] Persisted log unreadable, starting empty", "key", err.Key, "error", err.Err)
}

// Append records one event of category c stamped with the current time,
// persists the full log, and returns a snapshot of the new log.
//
// On a write failure the returned snapshot still contains the new record and
// the error is a *errors.StorageWriteError; memory is not rolled back.
func (s *Store) Append(ctx context.Context, c v1.Category) ([]v1.EventRecord, error) {
	if !c.Valid() {
		return s.Events(), fmt.Errorf("%w: %q", v1.ErrInvalidCategory, c)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	record := v1.NewEventRecord(c, s.clock.Now())

	current := s.log.current()
	next := make([]v1.EventRecord, len(current), len(current)+1)
	copy(next, current)
	next = append(next, record)
	s.log.replace(next)

	observability.EventsAppendedTotal.WithLabelValues(string(c)).Inc()
	observability.EventLogSize.Set(float64(len(next)))

	err := s.persist(ctx, next)
	s.publish(Change{Kind: ChangeAppended, Size: len(next), Event: &record, At: s.clock.Now()})

	slog.Debug("[EventStore] Event appended", "type", c, "timestamp", record.Timestamp, "size", len(next))
	return cloneEvents(next), err
}

// ResetToday removes every record at or after local midnight of now's day,
// persists the reduced log, and returns it with the number of records removed.
// Records before today are untouched. Repeating the call removes nothing more.
func (s *Store) ResetToday(ctx context.Context, now time.Time) ([]v1.EventRecord, int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	startMs := s.calendar.WindowStart(aggregation.ScopeDay, now).UnixMilli()

	current := s.log.current()
	kept := make([]v1.EventRecord, 0, len(current))
	for _, evt := range current {
		if evt.Timestamp < startMs {
			kept = append(kept, evt)
		}
	}
	removed := len(current) - len(kept)
	s.log.replace(kept)

	observability.ResetsTotal.Inc()
	observability.EventsPurgedTotal.Add(float64(removed))
	observability.EventLogSize.Set(float64(len(kept)))

	err := s.persist(ctx, kept)
	s.publish(Change{Kind: ChangeReset, Size: len(kept), Removed: removed, At: s.clock.Now()})

	slog.Info("[EventStore] Reset today", "removed", removed, "remaining", len(kept))
	return cloneEvents(kept), removed, err
}

// persist writes the full log, retrying with exponential backoff up to the
// configured number of attempts.
func (s *Store) persist(ctx context.Context, events []v1.EventRecord) error {
	blob, err := storage.EncodeEventLog(events)
	if err != nil {
		observability.StorageWriteFailuresTotal.Inc()
		return &corerr.StorageWriteError{Key: s.opts.Key, Attempts: 0, Err: err}
	}

	// The in-memory log has already advanced, so the write must finish even
	// if the caller has gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WriteTimeout)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.WriteInitialBackoff
	policy.MaxInterval = maxWriteBackoff
	policy.MaxElapsedTime = 0

	retry := backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(s.opts.WriteMaxAttempts-1)),
		ctx,
	)

	attempts := 0
	operation := func() error {
		attempts++
		setErr := s.kv.Set(ctx, s.opts.Key, blob)
		if setErr != nil && ctx.Err() != nil {
			return backoff.Permanent(setErr)
		}
		return setErr
	}
	onRetry := func(err error, wait time.Duration) {
		observability.StorageWriteRetriesTotal.Inc()
		slog.Warn("[EventStore] Persist failed, retrying",
			"key", s.opts.Key,
			"attempt", attempts,
			"wait", wait,
			"error", err)
	}

	started := time.Now()
	err = backoff.RetryNotify(operation, retry, onRetry)
	observability.StorageWriteDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		observability.StorageWriteFailuresTotal.Inc()
		slog.Error("[EventStore] Persist failed, in-memory log is ahead of storage",
			"key", s.opts.Key,
			"attempts", attempts,
			"error", err)
		return &corerr.StorageWriteError{Key: s.opts.Key, Attempts: attempts, Err: err}
	}
	return nil
}
