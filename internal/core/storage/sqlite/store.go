package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aevon-lab/knocklog/internal/core/storage"
	"github.com/aevon-lab/knocklog/internal/migrations"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store implements storage.KeyValueStore on a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex

	stmtGet *sql.Stmt
	stmtSet *sql.Stmt

	nowFn func() time.Time
}

// Open migrates (when autoMigrate is set) and opens the database at path.
func Open(path string, autoMigrate bool) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("sqlite path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory %q: %w", dir, err)
		}
	}

	if err := migrations.RunSQLite(cleanPath, autoMigrate); err != nil {
		return nil, fmt.Errorf("sqlite migrations failed: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	s, err := newStore(db, cleanPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("[SQLite] Store initialized", "path", cleanPath)
	return s, nil
}

func newStore(db *sql.DB, path string) (*Store, error) {
	var tables int
	if err := db.QueryRow(querySchemaExists).Scan(&tables); err != nil {
		return nil, fmt.Errorf("failed to check schema: %w", err)
	}
	if tables == 0 {
		return nil, fmt.Errorf("kv_store table does not exist - did you run migrations?")
	}

	stmtGet, err := db.Prepare(queryGetValue)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare get statement: %w", err)
	}
	stmtSet, err := db.Prepare(querySetValue)
	if err != nil {
		stmtGet.Close()
		return nil, fmt.Errorf("failed to prepare set statement: %w", err)
	}

	return &Store{
		db:      db,
		path:    path,
		stmtGet: stmtGet,
		stmtSet: stmtSet,
		nowFn:   time.Now,
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.withRetry(ctx, "get "+key, func() error {
		return s.stmtGet.QueryRowContext(ctx, key).Scan(&value)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry(ctx, "set "+key, func() error {
		_, err := s.stmtSet.ExecContext(ctx, key, value, s.nowFn().UTC().Format(time.RFC3339Nano))
		return err
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the prepared statements and the database.
func (s *Store) Close() error {
	var firstErr error

	if err := s.stmtGet.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close get statement: %w", err)
	}
	if err := s.stmtSet.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close set statement: %w", err)
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close database: %w", err)
	}

	if firstErr != nil {
		return firstErr
	}
	slog.Info("[SQLite] Store closed", "path", s.path)
	return nil
}

// withRetry retries fn while SQLite reports lock contention.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
