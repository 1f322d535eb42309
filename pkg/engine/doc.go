// Package engine implements the core of the Strata configuration
// realization engine.
//
// # Overview
//
// Strata folds a base configuration file and an ordered list of
// overlay files into a single realized document. The engine operates
// through a 5-phase pipeline:
//
//  1. Load - Parse each layer into the key-order-preserving document model
//  2. Merge - Fold overlays onto the base, rightmost layer winning
//  3. Graph - Build the reference dependency graph and reject cycles
//  4. Resolve - Replace every ${...} reference with its target value
//  5. Emit - Encode the realized document and write it atomically
//
// A pipeline stops at the first failure: a run either produces a
// complete realized document or reports exactly one classified error
// and writes nothing.
//
// # Core Domain Types
//
// The package defines the types that represent one realization run:
//
//   - Engine: The orchestrator that executes runs
//   - Options: One realization request (base, overlays, output, key path)
//   - Report: The outcome of a run with its phase, stats, and error
//   - Graph: The reference dependency graph of a merged document
//   - RealizationError: A classified error with document context
//
// # References
//
// Scalar string values may embed references to other paths in the
// merged document:
//
//	host: ${database.host}
//	url: "postgres://${database.host}:${database.port}/app"
//	pool: ${database.pool:-10}
//
// A string that is exactly one reference adopts the target value with
// its type and structure intact, including mappings and sequences. A
// reference embedded in surrounding text splices the target's scalar
// text into place; composite targets are a type_mismatch error there.
// The :- form supplies a literal default used only when the target
// path is absent. Resolution is transitive and order-independent:
// chains of references collapse to the same result no matter where
// they sit in the document.
//
// # Error Classification
//
// Every failure carries exactly one ErrorKind:
//
//   - KindLoad: An input file could not be read or parsed
//   - KindMalformedReference: Reference syntax that does not scan
//   - KindUnresolvedReference: A target that is absent with no default
//   - KindTypeMismatch: A composite value spliced into text
//   - KindCycle: A reference chain that returns to itself
//   - KindEmission: The realized document could not be written
//   - KindInternal: An engine invariant did not hold
//
// Use the helpers to classify and inspect errors:
//
//	if IsKind(err, KindCycle) {
//	    // The error's Cycle field holds the full chain.
//	}
//
// # Determinism
//
// Equal inputs produce byte-identical output. Mapping keys keep the
// order of first appearance across layers, graph traversal and error
// selection are lexicographic, and emission writes through a single
// canonical encoder per format. Realizing an already-realized document
// is the identity.
//
// # Example Usage
//
// Basic workflow for realizing a configuration:
//
//	eng := engine.NewEngine(tel, store)
//
//	report, err := eng.Realize(ctx, engine.Options{
//	    BasePath:     "base.yaml",
//	    OverlayPaths: []string{"prod.yaml"},
//	    OutputPath:   "out/app.yaml",
//	})
//	if err != nil {
//	    // report.Error carries the classified failure.
//	}
//
// Check validates without emitting, Render realizes to memory, and
// Graph returns the dependency graph for inspection.
//
// # Concurrency
//
// An Engine is safe for concurrent runs: each run carries its own
// state and the document model is never shared between runs. The
// telemetry and history backends synchronize internally.
package engine
