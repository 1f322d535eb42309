package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/strata/pkg/config"
	"github.com/openfroyo/strata/pkg/engine"
	"github.com/openfroyo/strata/pkg/watch"
)

func newWatchCommand() *cobra.Command {
	var (
		outputPath  string
		keyPath     string
		format      string
		debounce    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch BASE [OVERLAY...]",
		Short: "Re-realize whenever a layer changes",
		Long: `Watch realizes the configuration once, then watches every layer file
and re-realizes after each change. Bursts of changes are coalesced by
a debounce interval, and a failing realization keeps the watch alive
with the previous output untouched.

With --metrics-addr a Prometheus endpoint serves run counters and
phase durations at /metrics while the watch runs.`,
		Example: `  # Keep out/app.yaml current while editing layers
  strata watch base.yaml prod.yaml -o out/app.yaml

  # Expose watch metrics on :9090
  strata watch base.yaml prod.yaml -o out/app.yaml --metrics-addr :9090`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := setupRuntime(cmd.Context(), func(s *config.Settings) {
				if metricsAddr != "" {
					s.Metrics.Enabled = true
					s.Metrics.ListenAddress = metricsAddr
				}
			})
			if err != nil {
				return err
			}
			defer cleanup()

			if rt.settings.Metrics.Enabled {
				if err := rt.tel.Metrics.StartMetricsServer(); err != nil {
					rt.tel.Logger.WithError(err).Warn("Failed to start metrics endpoint")
				}
			}

			interval := debounce
			if interval <= 0 {
				interval = rt.settings.Watch.Debounce.Duration()
			}

			eng := rt.newEngine(cmd)
			w := watch.NewWatcher(eng, rt.tel, engine.Options{
				BasePath:     args[0],
				OverlayPaths: args[1:],
				OutputPath:   outputPath,
				KeyPath:      keyPath,
				Format:       outputFormat(format, outputPath, rt.settings),
			}, interval)

			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&keyPath, "key", "", "emit only the subtree at this dotted path")
	cmd.Flags().StringVar(&format, "format", "", "output format: yaml or json (default from the output extension)")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet interval before re-realizing (default from settings)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for the Prometheus /metrics endpoint")
	cmd.MarkFlagRequired("output")

	return cmd
}
