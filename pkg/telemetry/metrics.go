package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for strata.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	phaseDuration *prometheus.HistogramVec

	// Input metrics
	layersLoaded *prometheus.CounterVec
	layerSize    *prometheus.HistogramVec

	// Resolution metrics
	referencesResolved prometheus.Counter
	defaultsApplied    prometheus.Counter
	graphDepth         prometheus.Histogram

	// Output metrics
	documentsEmitted *prometheus.CounterVec

	// Error metrics
	errorsByKind *prometheus.CounterVec

	// Watch metrics
	watchReloads prometheus.Counter

	// System metrics
	activeRuns prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of realization runs started",
			},
			[]string{"trigger"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of realization runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of realization runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Duration of realization phases in seconds",
				Buckets:   buckets,
			},
			[]string{"phase"},
		),

		layersLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layers_loaded_total",
				Help:      "Total number of configuration layers loaded",
			},
			[]string{"format"},
		),
		layerSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layer_keys",
				Help:      "Top-level key count per loaded layer",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"format"},
		),

		referencesResolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "references_resolved_total",
				Help:      "Total number of references resolved",
			},
		),
		defaultsApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "defaults_applied_total",
				Help:      "Total number of reference defaults applied",
			},
		),
		graphDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_depth",
				Help:      "Depth of the reference dependency graph per run",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
		),

		documentsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_emitted_total",
				Help:      "Total number of realized documents emitted",
			},
			[]string{"format"},
		),

		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of realization errors by kind",
			},
			[]string{"kind"},
		),

		watchReloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_reloads_total",
				Help:      "Total number of watch-triggered re-realizations",
			},
		),

		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Current number of active realization runs",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.phaseDuration,
		m.layersLoaded,
		m.layerSize,
		m.referencesResolved,
		m.defaultsApplied,
		m.graphDepth,
		m.documentsEmitted,
		m.errorsByKind,
		m.watchReloads,
		m.activeRuns,
	)

	return m, nil
}

// Run Metrics

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted(trigger string) {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.WithLabelValues(trigger).Inc()
	m.activeRuns.Inc()
}

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeRuns.Dec()
}

// RecordPhase records the duration of one realization phase.
func (m *Metrics) RecordPhase(phase string, duration time.Duration) {
	if m.phaseDuration == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// Input Metrics

// RecordLayerLoaded records a loaded layer and its top-level key count.
func (m *Metrics) RecordLayerLoaded(format string, keys int) {
	if m.layersLoaded == nil {
		return
	}
	m.layersLoaded.WithLabelValues(format).Inc()
	m.layerSize.WithLabelValues(format).Observe(float64(keys))
}

// Resolution Metrics

// RecordResolution records reference resolution counts for one run.
func (m *Metrics) RecordResolution(resolved, defaulted, depth int) {
	if m.referencesResolved == nil {
		return
	}
	m.referencesResolved.Add(float64(resolved))
	m.defaultsApplied.Add(float64(defaulted))
	m.graphDepth.Observe(float64(depth))
}

// Output Metrics

// RecordEmission records an emitted document.
func (m *Metrics) RecordEmission(format string) {
	if m.documentsEmitted == nil {
		return
	}
	m.documentsEmitted.WithLabelValues(format).Inc()
}

// Error Metrics

// RecordError records a realization error by kind.
func (m *Metrics) RecordError(kind string) {
	if m.errorsByKind == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// Watch Metrics

// RecordWatchReload records a watch-triggered re-realization.
func (m *Metrics) RecordWatchReload() {
	if m.watchReloads == nil {
		return
	}
	m.watchReloads.Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
