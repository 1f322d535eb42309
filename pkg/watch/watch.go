// Package watch re-realizes a document whenever one of its input
// layers changes on disk.
//
// The watcher observes the parent directories of the base and overlay
// files, so editors that replace files by rename are still seen.
// Rapid bursts of events collapse into a single realization after a
// debounce interval, and a failed realization keeps the watch alive:
// the next successful save produces output again.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openfroyo/strata/pkg/engine"
	"github.com/openfroyo/strata/pkg/telemetry"
)

// DefaultDebounce is the quiet interval required after the last
// change before a realization starts.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-realizes one document when its layers change.
type Watcher struct {
	// OnRun, when set, receives the report of every realization the
	// watcher performs, the initial one included.
	OnRun func(report *engine.Report, err error)

	engine    *engine.Engine
	telemetry *telemetry.Telemetry
	opts      engine.Options
	debounce  time.Duration
	logger    *telemetry.Logger
}

// NewWatcher creates a watcher that realizes opts through eng. A
// non-positive debounce falls back to DefaultDebounce. tel may be nil.
func NewWatcher(eng *engine.Engine, tel *telemetry.Telemetry, opts engine.Options, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := telemetry.FromContext(context.Background())
	if tel != nil {
		logger = tel.Logger.NewComponentLogger("watcher")
	}
	return &Watcher{
		engine:    eng,
		telemetry: tel,
		opts:      opts,
		debounce:  debounce,
		logger:    logger,
	}
}

// Run performs an initial realization, then blocks watching the layer
// files until ctx is cancelled. Realization failures are reported
// through OnRun and the log but do not stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	layers := w.layers()
	layerSet := make(map[string]bool, len(layers))
	for _, layer := range layers {
		layerSet[filepath.Clean(layer)] = true
	}
	if w.opts.OutputPath != "" && layerSet[filepath.Clean(w.opts.OutputPath)] {
		return fmt.Errorf("output path %s is also an input layer", w.opts.OutputPath)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range watchDirs(layers) {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.logger.WithFields(map[string]interface{}{
		"files":    len(layers),
		"debounce": w.debounce.String(),
	}).Info("Watching layers for changes")

	w.realize(ctx, "")

	var timer *time.Timer
	var timerC <-chan time.Time
	var pending string

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !layerSet[filepath.Clean(event.Name)] {
				continue
			}

			w.logger.WithFields(map[string]interface{}{
				"file": event.Name,
				"op":   event.Op.String(),
			}).Debug("Layer changed")

			pending = event.Name
			if timer != nil && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.realize(ctx, pending)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(werr).Error("Watcher error")
		}
	}
}

// realize performs one realization. changed is the layer that
// triggered it, empty for the initial run.
func (w *Watcher) realize(ctx context.Context, changed string) {
	if changed != "" && w.telemetry != nil {
		w.telemetry.Metrics.RecordWatchReload()
		_ = w.telemetry.Events.PublishWatchTriggered(changed)
	}

	opts := w.opts
	opts.Trigger = engine.TriggerWatch
	report, err := w.engine.Realize(ctx, opts)
	if err != nil {
		w.logger.WithError(err).Error("Realization failed, watching for the next change")
	} else {
		w.logger.WithFields(map[string]interface{}{
			"run_id": report.RunID,
			"layers": report.Stats.LayersLoaded,
			"refs":   report.Stats.References,
		}).Info("Document realized")
	}

	if w.OnRun != nil {
		w.OnRun(report, err)
	}
}

func (w *Watcher) layers() []string {
	return append([]string{w.opts.BasePath}, w.opts.OverlayPaths...)
}

// watchDirs returns the deduplicated parent directories of the given
// files, sorted.
func watchDirs(files []string) []string {
	seen := make(map[string]bool, len(files))
	for _, file := range files {
		seen[filepath.Dir(file)] = true
	}
	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}
