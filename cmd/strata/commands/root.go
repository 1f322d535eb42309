package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/strata/pkg/config"
	"github.com/openfroyo/strata/pkg/emit"
	"github.com/openfroyo/strata/pkg/engine"
	"github.com/openfroyo/strata/pkg/stores"
	"github.com/openfroyo/strata/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	// buildVersion is set by Execute so commands can stamp telemetry
	// with the binary version.
	buildVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	buildVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "strata",
		Short: "Strata - Layered Configuration Realization",
		Long: `Strata realizes layered configuration files into one concrete document.

A run starts from a base layer, merges overlay layers left to right
with rightmost-wins semantics, resolves ${dotted.path} references
between keys, and emits the result as YAML or JSON with the original
key order preserved.

Features:
  - Deep merge of YAML, JSON, TOML and CUE layers
  - ${path} references with ${path:-default} fallbacks
  - Deterministic, byte-identical output
  - Validation without writing output
  - Reference graph inspection as text or Graphviz DOT
  - Watch mode that re-realizes on file changes
  - Run history recorded in SQLite`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newRealizeCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// runtime bundles the services a command needs: loaded settings, the
// telemetry stack, and the optional run-history store.
type runtime struct {
	settings *config.Settings
	tel      *telemetry.Telemetry
	store    stores.Store
}

// setupRuntime loads settings, applies flag and caller overrides, and
// builds telemetry and the history store. The returned cleanup must
// run before the command exits.
//
// A history store that cannot be opened downgrades to a warning: a
// broken database file should not stop realizations.
func setupRuntime(ctx context.Context, overrides ...func(*config.Settings)) (*runtime, func(), error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if verbose {
		settings.Logging.Level = "debug"
	}
	if jsonOutput {
		settings.Logging.Format = "json"
	}
	for _, override := range overrides {
		override(settings)
	}

	tel, err := telemetry.NewTelemetry(settings.TelemetryConfig(buildVersion))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	rt := &runtime{settings: settings, tel: tel}

	if settings.History.Enabled {
		store, err := openHistoryStore(ctx, settings.History.Path)
		if err != nil {
			tel.Logger.WithError(err).Warn("Run history unavailable, continuing without it")
		} else {
			rt.store = store
		}
	}

	cleanup := func() {
		if rt.store != nil {
			if err := rt.store.Close(); err != nil {
				tel.Logger.WithError(err).Warn("Failed to close history store")
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			tel.Logger.WithError(err).Warn("Telemetry shutdown failed")
		}
	}

	return rt, cleanup, nil
}

func openHistoryStore(ctx context.Context, path string) (stores.Store, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// newEngine builds an engine whose stdout document stream follows the
// command's writer.
func (rt *runtime) newEngine(cmd *cobra.Command) *engine.Engine {
	eng := engine.NewEngine(rt.tel, rt.store)
	eng.SetOutput(cmd.OutOrStdout())
	return eng
}

// outputFormat resolves the --format flag against the settings default.
// File outputs leave the format empty so the engine can infer it from
// the extension.
func outputFormat(flag, outputPath string, settings *config.Settings) emit.Format {
	if flag != "" {
		return emit.Format(flag)
	}
	if outputPath == "" || outputPath == "-" {
		return emit.Format(settings.Output.Format)
	}
	return ""
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(w, string(data))
}

// printFailure writes a failed run report: the full report in JSON
// mode, otherwise the classified error as an indented block.
func printFailure(w io.Writer, report *engine.Report) {
	if report == nil {
		return
	}
	if jsonOutput {
		printJSON(w, report)
		return
	}
	fmt.Fprintf(w, "Realization failed in the %s phase:\n", report.Phase)
	printRealizationError(w, report.Error)
}

func printRealizationError(w io.Writer, rerr *engine.RealizationError) {
	if rerr == nil {
		return
	}
	fmt.Fprintf(w, "  kind:    %s\n", rerr.Kind)
	fmt.Fprintf(w, "  message: %s\n", rerr.Message)
	if rerr.Path != "" {
		fmt.Fprintf(w, "  path:    %s\n", rerr.Path)
	}
	if rerr.Target != "" {
		fmt.Fprintf(w, "  target:  %s\n", rerr.Target)
	}
	if rerr.Source != "" {
		fmt.Fprintf(w, "  layer:   %s\n", rerr.Source)
	}
	if len(rerr.Cycle) > 0 {
		fmt.Fprintf(w, "  cycle:   %s\n", engine.FormatCycle(rerr.Cycle))
	}
}
