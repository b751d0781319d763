package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	corecfg "github.com/aevon-lab/knocklog/internal/core/config"
	corerr "github.com/aevon-lab/knocklog/internal/core/errors"
	"github.com/aevon-lab/knocklog/internal/projection"
	"github.com/spf13/cobra"
)

func newAddCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "add CATEGORY",
		Short:     "Record one event (ping, answered, entrance)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: categoryNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := v1.ParseCategory(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.store.Append(cmd.Context(), category)
			out := cmd.OutOrStdout()
			if err != nil {
				return writeFailure(cmd.ErrOrStderr(), err)
			}

			last := events[len(events)-1]
			fmt.Fprintf(out, "recorded %s at %s (%d events total)\n",
				last.Type, last.Time(a.clock.Location()).Format("2006-01-02 15:04:05"), len(events))
			return printToday(out, a.projection.Today())
		},
	}
}

func newResetCmd(configPath *string) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every event recorded since local midnight",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to reset today's events without --yes")
			}

			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			remaining, removed, err := a.store.ResetToday(cmd.Context(), a.clock.Now())
			if err != nil {
				return writeFailure(cmd.ErrOrStderr(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d events, %d remaining\n", removed, len(remaining))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm the reset")
	return cmd
}

func newTodayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Print today's counts per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			return printToday(cmd.OutOrStdout(), a.projection.Today())
		},
	}
}

func newGraphCmd(configPath *string) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print hourly buckets for a day, week, or month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			graph, err := a.projection.Graph(scope)
			if err != nil {
				return err
			}
			return printGraph(cmd.OutOrStdout(), graph)
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", "day", "Window scope: day, week, or month")
	return cmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the default configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := corecfg.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(initCmd)
	return configCmd
}

// writeFailure reports a mutation that is live in this process but not durable.
func writeFailure(w io.Writer, err error) error {
	var writeErr *corerr.StorageWriteError
	if errors.As(err, &writeErr) {
		fmt.Fprintf(w, "warning: change was not saved after %d attempt(s)\n", writeErr.Attempts)
	}
	return err
}

func printToday(w io.Writer, today projection.TodayResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "since %s\n", today.Since.Format("2006-01-02 15:04 MST"))
	fmt.Fprintln(tw, "CATEGORY\tCOUNT\tSHARE")
	for _, c := range v1.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", c, today.Counts.Get(c), today.Shares[c].StringFixed(2))
	}
	fmt.Fprintf(tw, "total\t%d\t\n", today.Total)
	return tw.Flush()
}

func printGraph(w io.Writer, graph projection.GraphResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s since %s\n", graph.Scope, graph.WindowStart.Format("2006-01-02 15:04 MST"))

	header := []string{"BUCKET", "HOUR"}
	for _, c := range v1.Categories {
		header = append(header, strings.ToUpper(string(c)))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range graph.Rows {
		fields := []string{row.BucketStart.Format("2006-01-02 15:04"), fmt.Sprintf("%02d", row.Hour)}
		for _, c := range v1.Categories {
			fields = append(fields, fmt.Sprintf("%d", row.Counts.Get(c)))
		}
		fmt.Fprintln(tw, strings.Join(fields, "\t"))
	}
	if len(graph.Rows) == 0 {
		fmt.Fprintln(tw, "(no events)")
	}
	return tw.Flush()
}

func categoryNames() []string {
	names := make([]string, len(v1.Categories))
	for i, c := range v1.Categories {
		names[i] = string(c)
	}
	return names
}
