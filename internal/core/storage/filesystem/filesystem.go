package filesystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aevon-lab/knocklog/internal/core/storage"
)

const fileExt = ".json"

// Store implements storage.KeyValueStore with one file per key: root/{key}.json.
// Writes go to a temp file in the same directory and are renamed into place,
// so a crash leaves either the old or the new value, never a partial one.
type Store struct {
	rootDir string
	mu      sync.Mutex
}

// New creates the root directory if needed and returns a store rooted there.
func New(rootDir string) (*Store, error) {
	rootDir = strings.TrimSpace(rootDir)
	if rootDir == "" {
		return nil, fmt.Errorf("filesystem storage path must not be empty")
	}
	if info, err := os.Stat(rootDir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("filesystem storage path %q is a file, expected directory", rootDir)
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory %q: %w", rootDir, err)
	}

	slog.Info("[Filesystem] Store initialized", "root", rootDir)
	return &Store{rootDir: rootDir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.rootDir, key+fileExt)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}

	content, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("failed to read %q: %w", key, err)
	}
	return string(content), nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.rootDir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %q: %w", key, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file for %q: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %q: %w", key, err)
	}
	if err := syncDir(s.rootDir); err != nil {
		return fmt.Errorf("failed to commit %q: %w", key, err)
	}
	return nil
}

// syncDir flushes the directory entry so a completed rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

// Ping checks that the root directory is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.rootDir)
	if err != nil {
		return fmt.Errorf("storage directory unreachable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage path %q is not a directory", s.rootDir)
	}
	return nil
}

func (s *Store) Close() error { return nil }
