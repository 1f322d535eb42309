// Package telemetry provides observability instrumentation for strata.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), metrics (Prometheus), and event publishing into a
// unified system for monitoring and debugging realization runs.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "strata"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("engine")
//	logger = logger.WithRunID("run-123").WithLayer("prod.yaml")
//	logger.Info("Merging overlays")
//	logger.WithError(err).Error("Realization failed")
//
// Log levels: trace, debug, info, warn, error, fatal. Logs go to stderr
// by default so they never mix with document output on stdout.
//
// # Distributed Tracing
//
// Tracing provides visibility into run flow and per-phase timing:
//
//	ctx, span := tel.Tracer.StartRunSpan(ctx, runID)
//	defer span.End()
//
//	span.SetAttributes(
//	    telemetry.AttrLayerCount.Int(len(overlays)),
//	    telemetry.AttrOutputPath.String(outputPath),
//	)
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP (collectors), Stdout (debugging), None (testing)
//
// # Metrics
//
// Prometheus metrics track realization behavior and performance:
//
//	tel.Metrics.RecordRunStarted("cli")
//	tel.Metrics.RecordRunCompleted("succeeded", duration)
//	tel.Metrics.RecordPhase("resolve", duration)
//	tel.Metrics.RecordLayerLoaded("yaml", keys)
//	tel.Metrics.RecordError("cycle")
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Event Publishing
//
// The event system provides publishing with buffering and filtering:
//
//	tel.Events.PublishRunStarted(runID, "watch")
//	tel.Events.PublishOutputWritten(runID, "out.yaml", "yaml")
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event filters: FilterByLevel, FilterByType, FilterByRunID
//
// # Context Helpers
//
// High-level helpers simplify common instrumentation patterns:
//
//	// Run context
//	ctx = telemetry.WithRunContext(ctx, runID, "cli")
//	defer telemetry.EndRunContext(ctx, runID, status, duration, err)
//
//	// Phase timing
//	err := telemetry.TimePhase(ctx, runID, "merge", func(ctx context.Context) error {
//	    merged, prov = merge.Layers(layers...)
//	    return nil
//	})
//
// # Configuration
//
// The package provides pre-configured setups:
//
//	// Interactive CLI use (console logs to stderr, no exporters)
//	cfg := telemetry.DefaultConfig()
//
//	// Long-running watch mode behind a collector
//	cfg := telemetry.ServiceConfig()
//
//	// Full tracing to stdout
//	cfg := telemetry.DebugConfig()
//
// # Common Metrics
//
// Key metrics exposed:
//
//   - strata_runs_started_total{trigger}
//   - strata_runs_completed_total{status}
//   - strata_run_duration_seconds{status}
//   - strata_phase_duration_seconds{phase}
//   - strata_layers_loaded_total{format}
//   - strata_references_resolved_total
//   - strata_defaults_applied_total
//   - strata_documents_emitted_total{format}
//   - strata_errors_total{kind}
//   - strata_watch_reloads_total
//   - strata_active_runs
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
package telemetry
