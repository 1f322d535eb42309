// Package merge folds overlay documents onto a base document.
//
// The fold is left to right: of two layers, the rightmost wins. When
// both sides hold a mapping the merge descends per key, keeping the
// base's key order and appending new overlay keys at the end. Any
// other combination (sequence or scalar on either side, including
// null) replaces the base value wholesale; sequences are never merged
// element-wise.
//
// Inputs are never mutated. Alongside the merged document the fold
// records provenance: which layer supplied the winning value at each
// leaf path, for diagnostics and reporting.
package merge
