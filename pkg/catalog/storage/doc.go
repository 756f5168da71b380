// Package storage provides catalog.Store backends.
//
// SQLiteStore keeps records in a SQLite database and works with either the
// cgo driver (github.com/mattn/go-sqlite3, driver name "sqlite3") or the pure
// Go driver (modernc.org/sqlite, driver name "sqlite"). MemoryStore keeps
// records in maps and is used by tests and by the "memory" catalog backend.
//
// Both backends normalize records on write: timestamps are stored in UTC and
// date-time attribute values are rewritten to catalog.DateTimeLayout, so a
// filter evaluates the same way against either backend.
package storage
