package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	_ "time/tzdata" // IANA zones for hosts without a zoneinfo database

	corecfg "github.com/aevon-lab/knocklog/internal/core/config"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "knocklog.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "knocklog",
		Short:         "Doorbell and intercom event logger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to configuration file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newAddCmd(&configPath),
		newResetCmd(&configPath),
		newTodayCmd(&configPath),
		newGraphCmd(&configPath),
		newConfigCmd(),
	)
	return rootCmd
}

// setupLogger installs the default slog logger described by cfg.
func setupLogger(cfg corecfg.LoggingConfig, w io.Writer) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
