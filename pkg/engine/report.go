package engine

import "time"

// Run statuses reported by the engine.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Realization phases in execution order.
const (
	PhaseLoad    = "load"
	PhaseMerge   = "merge"
	PhaseGraph   = "graph"
	PhaseResolve = "resolve"
	PhaseEmit    = "emit"
)

// Triggers label what started a run.
const (
	TriggerCLI   = "cli"
	TriggerWatch = "watch"
)

// Stats summarizes the work one run performed.
type Stats struct {
	// LayersLoaded is the number of input files parsed, base included.
	LayersLoaded int `json:"layers_loaded"`

	// References is the number of references found in the merged
	// document.
	References int `json:"references"`

	// DefaultsApplied is the number of references whose target was
	// absent and whose inline default supplied the value.
	DefaultsApplied int `json:"defaults_applied"`

	// GraphDepth is the number of dependency levels in the reference
	// graph.
	GraphDepth int `json:"graph_depth"`
}

// Report describes the outcome of one run: what was realized, how far
// it got, and what it cost.
type Report struct {
	RunID        string   `json:"run_id"`
	Trigger      string   `json:"trigger"`
	BasePath     string   `json:"base_path"`
	OverlayPaths []string `json:"overlay_paths,omitempty"`
	OutputPath   string   `json:"output_path,omitempty"`
	Format       string   `json:"format"`
	KeyPath      string   `json:"key_path,omitempty"`

	// Status is "succeeded" or "failed".
	Status string `json:"status"`

	// Phase is the last phase the run entered.
	Phase string `json:"phase"`

	// Error classifies the failure when Status is "failed".
	Error *RealizationError `json:"error,omitempty"`

	Stats Stats `json:"stats"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// Duration is the wall-clock time of the run. DurationMS carries
	// the same value in milliseconds for serialized reports.
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}
