package memory

import (
	"context"
	"sync"

	"github.com/aevon-lab/knocklog/internal/core/storage"
)

// Store is an in-memory implementation of storage.KeyValueStore.
// Useful for testing and ephemeral runs; nothing survives the process.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
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

	s.values[key] = value
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }
