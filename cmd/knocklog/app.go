package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aevon-lab/knocklog/internal/core/clock"
	corecfg "github.com/aevon-lab/knocklog/internal/core/config"
	"github.com/aevon-lab/knocklog/internal/core/storage/backend"
	"github.com/aevon-lab/knocklog/internal/eventstore"
	"github.com/aevon-lab/knocklog/internal/projection"
)

// app is the wiring shared by every command: one store over one backend.
type app struct {
	cfg        *corecfg.Config
	clock      clock.Clock
	kv         backend.Store
	store      *eventstore.Store
	projection *projection.Service
}

func openApp(ctx context.Context, configPath string) (*app, error) {
	// 1. Load Configuration
	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	if err := setupLogger(cfg.Logging, os.Stderr); err != nil {
		return nil, err
	}
	slog.Debug("Loaded config", "config", cfg)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := clock.NewSystem(loc)

	// 3. Initialize Storage
	kv, err := backend.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := backend.Check(ctx, kv); err != nil {
		kv.Close()
		return nil, err
	}

	// 4. Initialize Event Store and rehydrate it
	store := eventstore.New(kv, clk, eventstore.Options{
		Key:                 cfg.Storage.Key,
		WriteMaxAttempts:    cfg.Storage.WriteMaxAttempts,
		WriteInitialBackoff: cfg.Storage.WriteInitialBackoff,
		WriteTimeout:        cfg.Storage.WriteTimeout,
	})
	events := store.Load(ctx)
	slog.Info("Event store ready",
		"backend", cfg.Storage.Backend,
		"key", store.Key(),
		"events", len(events))

	return &app{
		cfg:        cfg,
		clock:      clk,
		kv:         kv,
		store:      store,
		projection: projection.NewService(store, clk),
	}, nil
}

func (a *app) Close() error {
	return a.kv.Close()
}
