package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/strata/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		status string
		prune  int
	)

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show recorded realization runs",
		Long: `History lists past realization runs from the local SQLite store,
newest first. Only realize and watch runs are recorded; validate,
graph and diff leave no history.

With a run ID argument the full record of that run is shown. With
--prune the store keeps only the newest N runs.`,
		Example: `  # List the last 20 runs
  strata history

  # List recent failures
  strata history --status failed --limit 5

  # Show one run in full
  strata history 4f1c9c6e-8d7a-4b7e-9f64-6f1f4c9b2d31

  # Keep only the newest 100 runs
  strata history --prune 100`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := setupRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if rt.store == nil {
				return fmt.Errorf("run history is disabled in settings")
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if prune > 0 {
				removed, err := rt.store.PruneRuns(ctx, prune)
				if err != nil {
					return fmt.Errorf("failed to prune history: %w", err)
				}
				fmt.Fprintf(out, "Pruned %d runs, kept the newest %d\n", removed, prune)
				return nil
			}

			if len(args) == 1 {
				run, err := rt.store.GetRun(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to load run %s: %w", args[0], err)
				}
				if jsonOutput {
					printJSON(out, run)
					return nil
				}
				printRun(out, run)
				return nil
			}

			var filter *stores.RunStatus
			if status != "" {
				st := stores.RunStatus(status)
				switch st {
				case stores.RunStatusRunning, stores.RunStatusSucceeded, stores.RunStatusFailed:
					filter = &st
				default:
					return fmt.Errorf("unknown status %q (want running, succeeded or failed)", status)
				}
			}

			runs, err := rt.store.ListRuns(ctx, filter, limit, 0)
			if err != nil {
				return fmt.Errorf("failed to list history: %w", err)
			}

			if jsonOutput {
				printJSON(out, runs)
				return nil
			}
			printRunTable(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&status, "status", "", "filter by status: running, succeeded or failed")
	cmd.Flags().IntVar(&prune, "prune", 0, "delete all but the newest N runs")

	return cmd
}

func printRunTable(w io.Writer, runs []*stores.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTATUS\tTRIGGER\tLAYERS\tREFS\tDURATION\tSTARTED\tBASE")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			shortID(run.ID),
			run.Status,
			run.TriggeredBy,
			run.LayersLoaded,
			run.References,
			time.Duration(run.DurationMS)*time.Millisecond,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.BasePath,
		)
	}
	tw.Flush()
}

func printRun(w io.Writer, run *stores.Run) {
	fmt.Fprintf(w, "Run:        %s\n", run.ID)
	fmt.Fprintf(w, "Status:     %s\n", run.Status)
	fmt.Fprintf(w, "Trigger:    %s\n", run.TriggeredBy)
	fmt.Fprintf(w, "Base:       %s\n", run.BasePath)
	if overlays := stores.DecodeOverlays(run.OverlayPaths); len(overlays) > 0 {
		fmt.Fprintf(w, "Overlays:   %s\n", strings.Join(overlays, ", "))
	}
	if run.OutputPath != "" && run.OutputPath != "-" {
		fmt.Fprintf(w, "Output:     %s (%s)\n", run.OutputPath, run.OutputFormat)
	} else {
		fmt.Fprintf(w, "Output:     stdout (%s)\n", run.OutputFormat)
	}
	if run.KeyPath != "" {
		fmt.Fprintf(w, "Key path:   %s\n", run.KeyPath)
	}
	fmt.Fprintf(w, "Layers:     %d\n", run.LayersLoaded)
	fmt.Fprintf(w, "References: %d (%d defaults applied)\n", run.References, run.Defaults)
	fmt.Fprintf(w, "Depth:      %d\n", run.GraphDepth)
	fmt.Fprintf(w, "Started:    %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:  %s\n", run.CompletedAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Duration:   %s\n", time.Duration(run.DurationMS)*time.Millisecond)
	if run.ErrorKind != nil {
		fmt.Fprintf(w, "Error kind: %s\n", *run.ErrorKind)
	}
	if run.ErrorMessage != nil {
		fmt.Fprintf(w, "Error:      %s\n", *run.ErrorMessage)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
