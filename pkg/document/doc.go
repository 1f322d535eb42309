// Package document defines the in-memory model for configuration
// documents: an insertion-ordered mapping type, sequences, and the
// scalar kinds, together with dotted-path addressing into nested
// mappings.
//
// # Node Values
//
// A node in a document is one of:
//
//   - nil (null)
//   - bool
//   - int64
//   - float64
//   - string
//   - Sequence (an ordered list of nodes)
//   - *Map (an insertion-ordered mapping of string keys to nodes)
//
// Loaders are responsible for normalizing parser output into exactly
// these types; the rest of the engine relies on the set above being
// closed. KindOf reports the kind of any node for diagnostics.
//
// # Ordering
//
// Map preserves the order in which keys were first set. Re-assigning
// an existing key keeps its original position. Every traversal
// (Iterate, Keys, Walk) observes that order, which is what makes
// realized output reproducible byte for byte.
//
// # Paths
//
// Path addresses a value inside nested mappings from the document
// root, using dot-separated segments ("run.files.grid"). Paths only
// descend mappings; sequence elements are not addressable.
package document
