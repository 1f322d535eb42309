package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/strata/pkg/document"
	"github.com/openfroyo/strata/pkg/emit"
	"github.com/openfroyo/strata/pkg/loader"
	"github.com/openfroyo/strata/pkg/merge"
	"github.com/openfroyo/strata/pkg/stores"
	"github.com/openfroyo/strata/pkg/telemetry"
)

// Options describes one realization request.
type Options struct {
	// BasePath is the base layer file.
	BasePath string

	// OverlayPaths are overlay files folded onto the base in order,
	// rightmost winning.
	OverlayPaths []string

	// OutputPath is the destination file. Empty or "-" writes the
	// document to stdout.
	OutputPath string

	// KeyPath restricts output to the subtree at this dotted path,
	// extracted after resolution.
	KeyPath string

	// Format selects the output encoding. When empty it is inferred
	// from the OutputPath extension, falling back to YAML.
	Format emit.Format

	// Trigger labels what started the run. Defaults to TriggerCLI.
	Trigger string
}

// Engine orchestrates realization runs through the load, merge, graph,
// resolve, and emit phases, recording telemetry and run history along
// the way.
type Engine struct {
	telemetry *telemetry.Telemetry
	store     stores.Store
	stdout    io.Writer
}

// NewEngine creates an engine. Telemetry and store may each be nil, in
// which case the engine runs without instrumentation or history.
func NewEngine(tel *telemetry.Telemetry, store stores.Store) *Engine {
	return &Engine{
		telemetry: tel,
		store:     store,
		stdout:    os.Stdout,
	}
}

// SetOutput redirects document output that would otherwise go to
// stdout.
func (e *Engine) SetOutput(w io.Writer) {
	e.stdout = w
}

// runMode selects how far a run goes and where its output lands.
type runMode int

const (
	// modeRealize writes the realized document to its destination and
	// records the run in history.
	modeRealize runMode = iota

	// modeCheck stops after resolution without emitting anything.
	modeCheck

	// modeRender returns the encoded document instead of writing it,
	// and leaves no history behind.
	modeRender
)

// Realize performs one full run: load the layers, merge them, build
// the reference graph, resolve all references, and emit the realized
// document. The returned report is non-nil whenever a run started,
// including failed runs.
func (e *Engine) Realize(ctx context.Context, opts Options) (*Report, error) {
	rep, _, err := e.execute(ctx, opts, modeRealize)
	return rep, err
}

// Check runs the load, merge, graph, and resolve phases without
// writing any output. It surfaces the same error kinds a full run
// would, so a document that checks clean will also realize clean.
func (e *Engine) Check(ctx context.Context, opts Options) (*Report, error) {
	rep, _, err := e.execute(ctx, opts, modeCheck)
	return rep, err
}

// Render realizes the document in memory and returns its encoded
// bytes. Nothing is written to disk and no history is recorded.
func (e *Engine) Render(ctx context.Context, opts Options) ([]byte, *Report, error) {
	rep, out, err := e.execute(ctx, opts, modeRender)
	return out, rep, err
}

// Graph loads and merges the configured layers and returns the
// reference dependency graph of the merged document.
func (e *Engine) Graph(ctx context.Context, opts Options) (*Graph, error) {
	if opts.BasePath == "" {
		return nil, NewError(KindLoad, "no base layer given", nil)
	}
	if e.telemetry != nil {
		ctx = e.telemetry.WithContext(ctx)
	}

	ic := telemetry.StartOperation(ctx, "build_graph",
		telemetry.AttrLayerCount.Int(1+len(opts.OverlayPaths)))
	graph, err := e.buildGraph(ic.Ctx, opts)
	ic.End(err)
	return graph, err
}

func (e *Engine) buildGraph(ctx context.Context, opts Options) (*Graph, error) {
	paths := append([]string{opts.BasePath}, opts.OverlayPaths...)
	layers := make([]merge.Layer, 0, len(paths))
	for _, path := range paths {
		doc, err := loader.Load(path)
		if err != nil {
			return nil, NewError(KindLoad, fmt.Sprintf("failed to load layer %s", path), err).WithSource(path)
		}
		layers = append(layers, merge.Layer{Name: path, Doc: doc})
	}

	merged, prov := merge.Layers(layers...)
	graph, err := BuildGraph(merged)
	if err != nil {
		return nil, annotateSource(err, prov)
	}

	telemetry.FromContext(ctx).WithFields(map[string]interface{}{
		"nodes": len(graph.Nodes()),
		"edges": len(graph.Edges()),
		"depth": graph.Depth(),
	}).Debug("Reference graph built")
	return graph, nil
}

// execute runs the realization pipeline and finalizes the report,
// telemetry, and history for the run.
func (e *Engine) execute(ctx context.Context, opts Options, mode runMode) (*Report, []byte, error) {
	if opts.BasePath == "" {
		return nil, nil, NewError(KindLoad, "no base layer given", nil)
	}
	format, err := resolveFormat(opts)
	if err != nil {
		return nil, nil, err
	}

	trigger := opts.Trigger
	if trigger == "" {
		trigger = TriggerCLI
	}

	runID := uuid.New().String()
	started := time.Now()

	if e.telemetry != nil {
		ctx = e.telemetry.WithContext(ctx)
	}
	ctx = telemetry.WithRunContext(ctx, runID, trigger)

	rep := &Report{
		RunID:        runID,
		Trigger:      trigger,
		BasePath:     opts.BasePath,
		OverlayPaths: opts.OverlayPaths,
		OutputPath:   opts.OutputPath,
		Format:       string(format),
		KeyPath:      opts.KeyPath,
		StartedAt:    started,
	}

	e.recordStart(ctx, runID, opts, format, trigger, started, mode)

	output, runErr := e.runPhases(ctx, runID, mode, format, opts, rep)

	rep.CompletedAt = time.Now()
	rep.Duration = rep.CompletedAt.Sub(started)
	rep.DurationMS = rep.Duration.Milliseconds()
	rep.Status = StatusSucceeded

	if runErr != nil {
		rep.Status = StatusFailed
		var rerr *RealizationError
		if errors.As(runErr, &rerr) {
			rep.Error = rerr
		} else {
			rep.Error = NewError(KindInternal, runErr.Error(), runErr)
		}
	}

	telemetry.EndRunContext(ctx, runID, rep.Status, rep.Duration, runErr)
	e.recordFinish(ctx, runID, rep, mode)

	log := telemetry.FromContext(ctx).WithFields(map[string]interface{}{
		"status":   rep.Status,
		"phase":    rep.Phase,
		"layers":   rep.Stats.LayersLoaded,
		"refs":     rep.Stats.References,
		"duration": rep.Duration.String(),
	})
	switch {
	case runErr != nil:
		log.WithError(runErr).Error("Run failed")
	case mode == modeRealize:
		log.Info("Run completed")
	default:
		log.Debug("Run completed")
	}

	return rep, output, runErr
}

// runPhases executes the pipeline phases in order, stopping at the
// first failure. Every returned error is classified.
func (e *Engine) runPhases(ctx context.Context, runID string, mode runMode, format emit.Format, opts Options, rep *Report) ([]byte, error) {
	paths := append([]string{opts.BasePath}, opts.OverlayPaths...)

	var layers []merge.Layer
	err := telemetry.TimePhase(ctx, runID, PhaseLoad, func(ctx context.Context) error {
		rep.Phase = PhaseLoad
		for _, path := range paths {
			doc, lerr := loader.Load(path)
			if lerr != nil {
				return NewError(KindLoad, fmt.Sprintf("failed to load layer %s", path), lerr).WithSource(path)
			}
			layers = append(layers, merge.Layer{Name: path, Doc: doc})
			rep.Stats.LayersLoaded = len(layers)
			e.recordLayer(ctx, runID, path, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var merged *document.Map
	var prov *merge.Provenance
	err = telemetry.TimePhase(ctx, runID, PhaseMerge, func(ctx context.Context) error {
		rep.Phase = PhaseMerge
		merged, prov = merge.Layers(layers...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = telemetry.TimePhase(ctx, runID, PhaseGraph, func(ctx context.Context) error {
		rep.Phase = PhaseGraph
		graph, gerr := BuildGraph(merged)
		if gerr != nil {
			return annotateSource(gerr, prov)
		}
		rep.Stats.References = graph.References()
		rep.Stats.DefaultsApplied = graph.DefaultsApplied()
		rep.Stats.GraphDepth = graph.Depth()
		if e.telemetry != nil {
			e.telemetry.Metrics.RecordResolution(graph.References(), graph.DefaultsApplied(), graph.Depth())
			_ = e.telemetry.Events.PublishGraphBuilt(runID, len(graph.Nodes()), len(graph.Edges()), graph.Depth())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var resolved *document.Map
	err = telemetry.TimePhase(ctx, runID, PhaseResolve, func(ctx context.Context) error {
		rep.Phase = PhaseResolve
		doc, rerr := Resolve(merged)
		if rerr != nil {
			return annotateSource(rerr, prov)
		}
		resolved = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if mode == modeCheck {
		return nil, nil
	}

	var output []byte
	err = telemetry.TimePhase(ctx, runID, PhaseEmit, func(ctx context.Context) error {
		rep.Phase = PhaseEmit
		node, nerr := outputNode(resolved, opts.KeyPath)
		if nerr != nil {
			return nerr
		}

		switch {
		case mode == modeRender:
			data, merr := emit.Marshal(node, format)
			if merr != nil {
				return NewError(KindEmission, "failed to render document", merr)
			}
			output = data
		case opts.OutputPath == "" || opts.OutputPath == "-":
			if werr := emit.WriteTo(e.stdout, node, format); werr != nil {
				return NewError(KindEmission, "failed to write document to stdout", werr)
			}
		default:
			if werr := emit.WriteFile(opts.OutputPath, node, format); werr != nil {
				return NewError(KindEmission, fmt.Sprintf("failed to write %s", opts.OutputPath), werr)
			}
		}

		if e.telemetry != nil {
			e.telemetry.Metrics.RecordEmission(string(format))
			_ = e.telemetry.Events.PublishOutputWritten(runID, opts.OutputPath, string(format))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

// recordLayer emits telemetry for one successfully loaded layer.
func (e *Engine) recordLayer(ctx context.Context, runID, path string, doc *document.Map) {
	if e.telemetry == nil {
		return
	}
	format, err := loader.DetectFormat(path)
	if err != nil {
		return
	}
	e.telemetry.Metrics.RecordLayerLoaded(format.String(), doc.Len())
	_ = e.telemetry.Events.PublishLayerLoaded(runID, path, format.String(), doc.Len())
	if span, ok := telemetry.RunSpanFromContext(ctx); ok {
		telemetry.AddLayerEvent(span, path, format.String())
	}
}

// recordStart writes the run-started row to history. History failures
// are logged but never fail the run.
func (e *Engine) recordStart(ctx context.Context, runID string, opts Options, format emit.Format, trigger string, started time.Time, mode runMode) {
	if mode != modeRealize || e.store == nil {
		return
	}
	run := &stores.Run{
		ID:           runID,
		TriggeredBy:  trigger,
		BasePath:     opts.BasePath,
		OverlayPaths: stores.EncodeOverlays(opts.OverlayPaths),
		OutputPath:   opts.OutputPath,
		OutputFormat: string(format),
		KeyPath:      opts.KeyPath,
		Status:       stores.RunStatusRunning,
		StartedAt:    started,
	}
	if err := e.store.CreateRun(ctx, run); err != nil {
		telemetry.FromContext(ctx).WithError(err).Warn("Failed to record run start")
	}
}

// recordFinish writes the run outcome back to history.
func (e *Engine) recordFinish(ctx context.Context, runID string, rep *Report, mode runMode) {
	if mode != modeRealize || e.store == nil {
		return
	}
	result := stores.RunResult{
		Status:       stores.RunStatus(rep.Status),
		LayersLoaded: rep.Stats.LayersLoaded,
		References:   rep.Stats.References,
		Defaults:     rep.Stats.DefaultsApplied,
		GraphDepth:   rep.Stats.GraphDepth,
		Duration:     rep.Duration,
	}
	if rep.Error != nil {
		kind := string(rep.Error.Kind)
		msg := rep.Error.Message
		result.ErrorKind = &kind
		result.ErrorMessage = &msg
	}
	if err := e.store.FinishRun(ctx, runID, result); err != nil {
		telemetry.FromContext(ctx).WithError(err).Warn("Failed to record run completion")
	}
}

// resolveFormat picks the output format: the explicit option first,
// then the output path extension, then YAML.
func resolveFormat(opts Options) (emit.Format, error) {
	if opts.Format != "" {
		switch opts.Format {
		case emit.FormatYAML, emit.FormatJSON:
			return opts.Format, nil
		default:
			return "", NewError(KindEmission, fmt.Sprintf("unknown output format %q", opts.Format), nil)
		}
	}
	if opts.OutputPath != "" && opts.OutputPath != "-" {
		if format, err := emit.DetectFormat(opts.OutputPath); err == nil {
			return format, nil
		}
	}
	return emit.FormatYAML, nil
}

// outputNode returns the node to emit: the whole document, or the
// subtree at keyPath.
func outputNode(doc *document.Map, keyPath string) (any, error) {
	if keyPath == "" {
		return doc, nil
	}
	path, err := document.ParsePath(keyPath)
	if err != nil {
		return nil, NewError(KindEmission, fmt.Sprintf("invalid key path %q", keyPath), err)
	}
	node, ok := document.Lookup(doc, path)
	if !ok {
		return nil, NewError(KindEmission, fmt.Sprintf("key path %q not found in realized document", keyPath), nil).WithPath(keyPath)
	}
	return node, nil
}

// annotateSource fills in the source file of a classified error from
// merge provenance, when the owning leaf path is known.
func annotateSource(err error, prov *merge.Provenance) error {
	var rerr *RealizationError
	if prov == nil || !errors.As(err, &rerr) {
		return err
	}
	if rerr.Source != "" || rerr.Path == "" {
		return err
	}
	path, perr := document.ParsePath(rerr.Path)
	if perr != nil {
		return err
	}
	if src, ok := prov.Lookup(path); ok && src.Name != "" {
		rerr.Source = src.Name
	}
	return err
}
