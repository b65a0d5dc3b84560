// Package history persists a record per finished batch in SQLite.
//
// The store is optional: the daemon runs fine without it, and every write
// failure is reported to the caller rather than failing the batch.
package history
