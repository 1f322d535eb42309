// Package stores provides the run-history persistence layer for strata.
// It includes SQLite-based storage with WAL mode, connection pooling,
// embedded schema migrations, and operations for recording, listing,
// and pruning realization runs.
package stores
