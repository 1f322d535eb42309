// Package loader reads configuration files into the document model.
//
// The format is inferred from the file extension: .yaml, .yml, and
// .json load through the YAML parser (YAML is a JSON superset), .toml
// through the TOML parser, and .cue through the CUE evaluator. Every
// front end normalizes scalars to the document model's closed set of
// kinds and reconstructs the declaration order of mapping keys, so
// downstream merging and emission stay reproducible regardless of the
// input format.
//
// The top-level value of every input must be a mapping.
package loader
