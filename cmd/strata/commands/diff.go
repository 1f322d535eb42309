package commands

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/k14s/difflib"
	"github.com/spf13/cobra"

	"github.com/openfroyo/strata/pkg/emit"
	"github.com/openfroyo/strata/pkg/engine"
)

func newDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff FILE_A FILE_B",
		Short: "Compare two configs after realization",
		Long: `Diff realizes both files independently, renders each as canonical
YAML, and prints a line diff of the results.

Comparing realized documents instead of raw files means formatting
differences, reference indirection and default values do not show up
as noise: only differences in the final values do.

The exit code is 0 when the realized documents are identical and 1
when they differ.`,
		Example: `  # Compare the realized output of two environments
  strata diff staging.yaml prod.yaml

  # Compare a YAML config against its JSON port
  strata diff app.yaml app.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := setupRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			eng := rt.newEngine(cmd)

			renderOne := func(path string) ([]byte, error) {
				data, _, err := eng.Render(cmd.Context(), engine.Options{
					BasePath: path,
					Format:   emit.FormatYAML,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to realize %s: %w", path, err)
				}
				return data, nil
			}

			left, err := renderOne(args[0])
			if err != nil {
				return err
			}
			right, err := renderOne(args[1])
			if err != nil {
				return err
			}

			if bytes.Equal(left, right) {
				return nil
			}

			diff := difflib.PPDiff(
				strings.Split(string(left), "\n"),
				strings.Split(string(right), "\n"),
			)
			fmt.Fprint(cmd.OutOrStdout(), diff)
			if !strings.HasSuffix(diff, "\n") {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return fmt.Errorf("%s and %s realize differently", args[0], args[1])
		},
	}

	return cmd
}
