// Package sqlite provides a SQLite-backed page cache for extracted
// document text.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. The cache keys
// page text by (document path, content hash) so unchanged documents are
// never re-extracted on rebuild. It is an optimisation only: dropping
// the database file loses nothing but extraction time.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
