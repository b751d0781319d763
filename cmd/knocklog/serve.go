package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aevon-lab/knocklog/internal/aggregation"
	"github.com/aevon-lab/knocklog/internal/ingestion"
	"github.com/aevon-lab/knocklog/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			return runServe(ctx, a)
		},
	}
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg

	// 5. Initialize Ingestion (add, reset, list, stream)
	ingestionSvc := ingestion.NewService(a.store, a.clock, cfg.Server.MaxBodySizeKB)

	// 6. Initialize Server (projection routes come from openApp)
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	srv := server.New(server.Options{
		Addr:           cfg.Server.Addr(),
		Mode:           cfg.Server.Mode,
		Health:         a.kv,
		MetricsPath:    metricsPath,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})
	ingestionSvc.RegisterRoutes(srv.Engine)
	a.projection.RegisterRoutes(srv.Engine)

	// 7. Start Services
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Rollover.Enabled {
		scheduler := aggregation.NewScheduler(a.clock, a.store)
		g.Go(func() error {
			return scheduler.Start(gctx)
		})
	} else {
		slog.Info("Rollover scheduler disabled by config")
	}

	// HTTP server blocks until gctx is cancelled.
	g.Go(func() error {
		return srv.Run(gctx)
	})

	err := g.Wait()
	if err != nil {
		slog.Error("Server stopped with error", "error", err)
	}
	slog.Info("Shutdown complete")
	return err
}
