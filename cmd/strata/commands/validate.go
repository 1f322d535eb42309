package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/strata/pkg/engine"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate BASE [OVERLAY...]",
		Short: "Validate layers without writing output",
		Long: `Validate loads, merges and resolves the given layers exactly like
realize, but stops before emission and writes nothing.

The exit code is 0 when the configuration realizes cleanly and 1 when
any layer fails to load, a reference is malformed or unresolved, the
references form a cycle, or a composite value is spliced into text.`,
		Example: `  # Validate a base layer alone
  strata validate base.yaml

  # Validate the full production stack
  strata validate base.yaml region.yaml prod.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := setupRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			eng := rt.newEngine(cmd)
			report, err := eng.Check(cmd.Context(), engine.Options{
				BasePath:     args[0],
				OverlayPaths: args[1:],
			})
			if err != nil {
				printFailure(cmd.OutOrStdout(), report)
				return err
			}

			if jsonOutput {
				printJSON(cmd.OutOrStdout(), report)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d layers, %d references, %d defaults, depth %d\n",
				report.Stats.LayersLoaded,
				report.Stats.References,
				report.Stats.DefaultsApplied,
				report.Stats.GraphDepth,
			)
			return nil
		},
	}

	return cmd
}
