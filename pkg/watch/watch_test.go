package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openfroyo/strata/pkg/engine"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// startWatcher runs w in the background and returns a channel of run
// errors plus a stop function that shuts the watcher down cleanly.
func startWatcher(t *testing.T, w *Watcher) (chan error, func()) {
	t.Helper()
	runs := make(chan error, 16)
	w.OnRun = func(_ *engine.Report, err error) {
		runs <- err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Expected no error from Run, got: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Watcher did not stop")
		}
	}
	return runs, stop
}

func waitRun(t *testing.T, runs chan error) error {
	t.Helper()
	select {
	case err := <-runs:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a realization")
		return nil
	}
}

func TestWatcher_InitialRealization(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	out := filepath.Join(t.TempDir(), "out.yaml")
	writeFile(t, base, "name: api\n")

	w := NewWatcher(engine.NewEngine(nil, nil), nil, engine.Options{
		BasePath:   base,
		OutputPath: out,
	}, 50*time.Millisecond)

	runs, stop := startWatcher(t, w)
	defer stop()

	if err := waitRun(t, runs); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := readFile(t, out); got != "name: api\n" {
		t.Errorf("Unexpected output: %q", got)
	}
}

func TestWatcher_RealizesOnChange(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	out := filepath.Join(t.TempDir(), "out.yaml")
	writeFile(t, base, "name: v1\n")

	w := NewWatcher(engine.NewEngine(nil, nil), nil, engine.Options{
		BasePath:   base,
		OutputPath: out,
	}, 50*time.Millisecond)

	runs, stop := startWatcher(t, w)
	defer stop()

	if err := waitRun(t, runs); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	writeFile(t, base, "name: v2\n")
	if err := waitRun(t, runs); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := readFile(t, out); got != "name: v2\n" {
		t.Errorf("Unexpected output: %q", got)
	}
}

func TestWatcher_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	out := filepath.Join(t.TempDir(), "out.yaml")
	writeFile(t, base, "name: v1\n")

	w := NewWatcher(engine.NewEngine(nil, nil), nil, engine.Options{
		BasePath:   base,
		OutputPath: out,
	}, 50*time.Millisecond)

	runs, stop := startWatcher(t, w)
	defer stop()

	if err := waitRun(t, runs); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	writeFile(t, base, "path: ${missing}\n")
	err := waitRun(t, runs)
	if err == nil {
		t.Fatal("Expected error for absent target, got nil")
	}
	if !engine.IsKind(err, engine.KindUnresolvedReference) {
		t.Errorf("Expected unresolved reference error, got: %v", err)
	}
	if got := readFile(t, out); got != "name: v1\n" {
		t.Errorf("Failed run touched the output: %q", got)
	}

	writeFile(t, base, "name: v3\n")
	if err := waitRun(t, runs); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := readFile(t, out); got != "name: v3\n" {
		t.Errorf("Unexpected output: %q", got)
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	out := filepath.Join(t.TempDir(), "out.yaml")
	writeFile(t, base, "name: v1\n")

	w := NewWatcher(engine.NewEngine(nil, nil), nil, engine.Options{
		BasePath:   base,
		OutputPath: out,
	}, time.Second)

	runs, stop := startWatcher(t, w)
	defer stop()

	if err := waitRun(t, runs); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Back-to-back writes land within one debounce window.
	writeFile(t, base, "name: v2\n")
	writeFile(t, base, "name: v3\n")

	if err := waitRun(t, runs); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := readFile(t, out); got != "name: v3\n" {
		t.Errorf("Unexpected output: %q", got)
	}

	select {
	case err := <-runs:
		t.Errorf("Expected a single debounced run, got another with err=%v", err)
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestWatcher_RejectsOutputAsInput(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	writeFile(t, base, "name: api\n")

	w := NewWatcher(engine.NewEngine(nil, nil), nil, engine.Options{
		BasePath:   base,
		OutputPath: base,
	}, 50*time.Millisecond)

	err := w.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error for output equal to input, got nil")
	}
}

func TestWatcher_DefaultDebounce(t *testing.T) {
	w := NewWatcher(engine.NewEngine(nil, nil), nil, engine.Options{BasePath: "base.yaml"}, 0)
	if w.debounce != DefaultDebounce {
		t.Errorf("Expected default debounce %v, got %v", DefaultDebounce, w.debounce)
	}
}

func TestWatchDirs(t *testing.T) {
	dirs := watchDirs([]string{
		filepath.Join("configs", "base.yaml"),
		filepath.Join("configs", "prod.yaml"),
		filepath.Join("extra", "dev.yaml"),
	})
	if len(dirs) != 2 {
		t.Fatalf("Expected 2 directories, got %d: %v", len(dirs), dirs)
	}
	if dirs[0] != "configs" || dirs[1] != "extra" {
		t.Errorf("Unexpected directories: %v", dirs)
	}
}
