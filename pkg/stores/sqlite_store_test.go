package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a file-backed SQLite store in a temp dir for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

// testRun returns a minimal running-state record for the given ID
func testRun(id string, startedAt time.Time) *Run {
	return &Run{
		ID:           id,
		TriggeredBy:  "cli",
		BasePath:     "configs/base.yaml",
		OverlayPaths: EncodeOverlays([]string{"configs/prod.yaml"}),
		OutputPath:   "out/app.yaml",
		OutputFormat: "yaml",
		Status:       RunStatusRunning,
		StartedAt:    startedAt,
		CreatedAt:    startedAt,
		UpdatedAt:    startedAt,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreRequiresPath tests path validation
func TestStoreRequiresPath(t *testing.T) {
	_, err := NewSQLiteStore(Config{})
	if err == nil {
		t.Fatal("expected error for empty path")
	}
}

// TestStoreMigrations tests that migrations create the runs table
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	var count int
	err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count)
	if err != nil {
		t.Errorf("runs table does not exist or is not accessible: %v", err)
	}

	// Migrating an up-to-date database is a no-op
	if err := store.Migrate(ctx); err != nil {
		t.Errorf("second migrate failed: %v", err)
	}
}

// TestRunLifecycle tests recording a run from start to finish
func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	run := testRun("run-001", now)
	run.KeyPath = "stages.grids"
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	retrieved, err := store.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}

	if retrieved.ID != run.ID {
		t.Errorf("expected ID %s, got %s", run.ID, retrieved.ID)
	}
	if retrieved.BasePath != run.BasePath {
		t.Errorf("expected BasePath %s, got %s", run.BasePath, retrieved.BasePath)
	}
	if retrieved.KeyPath != "stages.grids" {
		t.Errorf("expected KeyPath stages.grids, got %s", retrieved.KeyPath)
	}
	if retrieved.Status != RunStatusRunning {
		t.Errorf("expected Status %s, got %s", RunStatusRunning, retrieved.Status)
	}
	if retrieved.CompletedAt != nil {
		t.Error("expected CompletedAt to be unset for a running run")
	}

	overlays := DecodeOverlays(retrieved.OverlayPaths)
	if len(overlays) != 1 || overlays[0] != "configs/prod.yaml" {
		t.Errorf("expected overlays [configs/prod.yaml], got %v", overlays)
	}

	result := RunResult{
		Status:       RunStatusSucceeded,
		LayersLoaded: 2,
		References:   12,
		Defaults:     3,
		GraphDepth:   4,
		Duration:     1500 * time.Millisecond,
	}
	if err := store.FinishRun(ctx, "run-001", result); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	finished, err := store.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("failed to get finished run: %v", err)
	}

	if finished.Status != RunStatusSucceeded {
		t.Errorf("expected Status %s, got %s", RunStatusSucceeded, finished.Status)
	}
	if finished.LayersLoaded != 2 {
		t.Errorf("expected LayersLoaded 2, got %d", finished.LayersLoaded)
	}
	if finished.References != 12 {
		t.Errorf("expected References 12, got %d", finished.References)
	}
	if finished.DurationMS != 1500 {
		t.Errorf("expected DurationMS 1500, got %d", finished.DurationMS)
	}
	if finished.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if finished.ErrorKind != nil {
		t.Errorf("expected no ErrorKind, got %v", *finished.ErrorKind)
	}
}

// TestFinishRunRecordsError tests failure recording
func TestFinishRunRecordsError(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-002", time.Now())); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	kind := "unresolved_reference"
	msg := `reference "db.host" has no target and no default`
	result := RunResult{
		Status:       RunStatusFailed,
		ErrorKind:    &kind,
		ErrorMessage: &msg,
		Duration:     20 * time.Millisecond,
	}
	if err := store.FinishRun(ctx, "run-002", result); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	failed, err := store.GetRun(ctx, "run-002")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}

	if failed.Status != RunStatusFailed {
		t.Errorf("expected Status %s, got %s", RunStatusFailed, failed.Status)
	}
	if failed.ErrorKind == nil || *failed.ErrorKind != kind {
		t.Errorf("expected ErrorKind %s, got %v", kind, failed.ErrorKind)
	}
	if failed.ErrorMessage == nil || *failed.ErrorMessage != msg {
		t.Errorf("expected ErrorMessage %s, got %v", msg, failed.ErrorMessage)
	}
}

// TestFinishRunNotFound tests finishing an unknown run
func TestFinishRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	err := store.FinishRun(context.Background(), "missing", RunResult{Status: RunStatusFailed})
	if err == nil {
		t.Fatal("expected error for unknown run ID")
	}
}

// TestGetRunNotFound tests retrieving an unknown run
func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	_, err := store.GetRun(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for unknown run ID")
	}
}

// TestListRunsOrdering tests that runs come back newest first
func TestListRunsOrdering(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := testRun(id, base.Add(time.Duration(i)*time.Minute))
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}

	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" || runs[2].ID != "run-a" {
		t.Errorf("expected newest-first order [run-c run-b run-a], got [%s %s %s]",
			runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

// TestListRunsStatusFilter tests the optional status filter
func TestListRunsStatusFilter(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := testRun(id, base.Add(time.Duration(i)*time.Minute))
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run %s: %v", id, err)
		}
	}
	if err := store.FinishRun(ctx, "run-b", RunResult{Status: RunStatusSucceeded}); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	status := RunStatusSucceeded
	runs, err := store.ListRuns(ctx, &status, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}

	if len(runs) != 1 {
		t.Fatalf("expected 1 succeeded run, got %d", len(runs))
	}
	if runs[0].ID != "run-b" {
		t.Errorf("expected run-b, got %s", runs[0].ID)
	}
}

// TestListRunsPagination tests limit and offset
func TestListRunsPagination(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		run := testRun(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
	}

	page, err := store.ListRuns(ctx, nil, 2, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}

	if len(page) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(page))
	}
	if page[0].ID != "c" || page[1].ID != "b" {
		t.Errorf("expected page [c b], got [%s %s]", page[0].ID, page[1].ID)
	}
}

// TestPruneRuns tests pruning old runs
func TestPruneRuns(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		run := testRun(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
	}

	deleted, err := store.PruneRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to prune runs: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted runs, got %d", deleted)
	}

	runs, err := store.ListRuns(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 remaining runs, got %d", len(runs))
	}
	if runs[0].ID != "e" || runs[1].ID != "d" {
		t.Errorf("expected newest runs [e d] to survive, got [%s %s]", runs[0].ID, runs[1].ID)
	}

	if _, err := store.GetRun(ctx, "a"); err == nil {
		t.Error("expected pruned run to be gone")
	}
}

// TestPruneRunsRejectsNegativeKeep tests input validation
func TestPruneRunsRejectsNegativeKeep(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if _, err := store.PruneRuns(context.Background(), -1); err == nil {
		t.Fatal("expected error for negative keep")
	}
}

// TestOverlayEncoding tests the overlay_paths column helpers
func TestOverlayEncoding(t *testing.T) {
	cases := []struct {
		name  string
		paths []string
		want  string
	}{
		{"empty", nil, "[]"},
		{"single", []string{"a.yaml"}, `["a.yaml"]`},
		{"multiple", []string{"a.yaml", "b.json"}, `["a.yaml","b.json"]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := EncodeOverlays(tc.paths)
			if encoded != tc.want {
				t.Errorf("expected %s, got %s", tc.want, encoded)
			}

			decoded := DecodeOverlays(encoded)
			if len(decoded) != len(tc.paths) {
				t.Fatalf("expected %d paths, got %d", len(tc.paths), len(decoded))
			}
			for i := range tc.paths {
				if decoded[i] != tc.paths[i] {
					t.Errorf("expected path %s, got %s", tc.paths[i], decoded[i])
				}
			}
		})
	}
}
