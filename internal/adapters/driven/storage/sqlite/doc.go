// Package sqlite provides a persisted vector index backed by SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Layout
//
// Each embedding model gets its own directory under the index root:
//
//	<root>/<model-slug>/index.db
//
// The index_meta table records the embedding model, vector dimensionality and
// similarity metric at creation. Opening an index with another model or
// dimensionality is a configuration error.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Search
//
// Queries scan every entry and rank by cosine similarity using the norms
// stored alongside each vector. This is exact and fast enough for the
// thousands of chunks a handful of documents produce.
//
// # Thread Safety
//
// All operations are thread-safe. The index uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
