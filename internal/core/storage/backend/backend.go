package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/knocklog/internal/core/config"
	"github.com/aevon-lab/knocklog/internal/core/storage"
	"github.com/aevon-lab/knocklog/internal/core/storage/filesystem"
	"github.com/aevon-lab/knocklog/internal/core/storage/memory"
	"github.com/aevon-lab/knocklog/internal/core/storage/postgres"
	"github.com/aevon-lab/knocklog/internal/core/storage/sqlite"
	"github.com/aevon-lab/knocklog/internal/migrations"
)

// Store is a key-value backend that can also report its health.
type Store interface {
	storage.KeyValueStore
	storage.Pinger
}

// Open builds the backend selected by cfg.Backend.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFilesystem:
		slog.Info("Using filesystem storage", "path", cfg.Path)
		fs, err := filesystem.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return fs, nil

	case config.BackendSQLite:
		slog.Info("Using SQLite storage", "path", cfg.Path, "auto_migrate", cfg.AutoMigrate)
		db, err := sqlite.Open(cfg.Path, cfg.AutoMigrate)
		if err != nil {
			return nil, err
		}
		return db, nil

	case config.BackendPostgres:
		slog.Info("Using PostgreSQL storage", "auto_migrate", cfg.AutoMigrate)
		db, err := postgres.Connect(cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
		if err != nil {
			return nil, err
		}
		if err := migrations.RunPostgres(db, cfg.AutoMigrate); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres migrations failed: %w", err)
		}
		adapter, err := postgres.NewAdapter(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return adapter, nil

	case config.BackendMemory:
		slog.Warn("Using in-memory storage, events are lost on exit")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// Check pings the backend once so startup fails fast on a broken store.
func Check(ctx context.Context, s Store) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}
