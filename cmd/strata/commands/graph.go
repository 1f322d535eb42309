package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/strata/pkg/engine"
)

func newGraphCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph BASE [OVERLAY...]",
		Short: "Print the reference dependency graph",
		Long: `Graph loads and merges the given layers, builds the reference
dependency graph, and prints it without resolving or emitting.

The text form lists each resolution level and the reference edges. The
dot form renders Graphviz DOT with one cluster per level, ready for
piping into dot -Tsvg.`,
		Example: `  # Show resolution levels and reference edges
  strata graph base.yaml prod.yaml

  # Render the graph as an SVG
  strata graph base.yaml prod.yaml --format dot | dot -Tsvg > refs.svg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := setupRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			eng := rt.newEngine(cmd)
			g, err := eng.Graph(cmd.Context(), engine.Options{
				BasePath:     args[0],
				OverlayPaths: args[1:],
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if jsonOutput {
				printJSON(out, map[string]interface{}{
					"nodes":            g.Nodes(),
					"edges":            g.Edges(),
					"levels":           g.Levels(),
					"references":       g.References(),
					"defaults_applied": g.DefaultsApplied(),
					"depth":            g.Depth(),
				})
				return nil
			}

			switch format {
			case "dot":
				fmt.Fprint(out, g.ToDOT())
			case "text":
				printGraphText(out, g)
			default:
				return fmt.Errorf("unknown graph format %q (want text or dot)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "graph output format: text or dot")

	return cmd
}

func printGraphText(w io.Writer, g *engine.Graph) {
	fmt.Fprintf(w, "%d nodes, %d references, %d defaults applied, depth %d\n",
		len(g.Nodes()), g.References(), g.DefaultsApplied(), g.Depth())

	for i, level := range g.Levels() {
		fmt.Fprintf(w, "level %d: %s\n", i, strings.Join(level, ", "))
	}

	edges := g.Edges()
	if len(edges) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, e := range edges {
		fmt.Fprintf(w, "%s -> %s\n", e.Owner, e.Target)
	}
}
