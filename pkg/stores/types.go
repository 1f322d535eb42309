package stores

import (
	"context"
	"encoding/json"
	"time"
)

// RunStatus represents the status of a realization run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one realization run recorded in history
type Run struct {
	ID           string     `json:"id"`
	TriggeredBy  string     `json:"triggered_by"` // cli or watch
	BasePath     string     `json:"base_path"`
	OverlayPaths string     `json:"overlay_paths"` // JSON array of file paths
	OutputPath   string     `json:"output_path"`
	OutputFormat string     `json:"output_format"`
	KeyPath      string     `json:"key_path,omitempty"`
	Status       RunStatus  `json:"status"`
	ErrorKind    *string    `json:"error_kind,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	LayersLoaded int        `json:"layers_loaded"`
	References   int        `json:"references"`
	Defaults     int        `json:"defaults"`
	GraphDepth   int        `json:"graph_depth"`
	DurationMS   int64      `json:"duration_ms"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RunResult carries the outcome written back when a run finishes
type RunResult struct {
	Status       RunStatus
	ErrorKind    *string
	ErrorMessage *string
	LayersLoaded int
	References   int
	Defaults     int
	GraphDepth   int
	Duration     time.Duration
}

// EncodeOverlays encodes overlay paths for the overlay_paths column
func EncodeOverlays(paths []string) string {
	if len(paths) == 0 {
		return "[]"
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// DecodeOverlays decodes the overlay_paths column back into paths
func DecodeOverlays(encoded string) []string {
	if encoded == "" {
		return nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(encoded), &paths); err != nil {
		return nil
	}
	return paths
}

// Store defines the interface for the run-history persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id string, result RunResult) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]*Run, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)
}
