// Package storage holds the access log backends.
//
// Both SQLite backends share one schema and one implementation; they differ
// only in the database/sql driver: "sqlite3" from github.com/mattn/go-sqlite3
// (cgo) and "sqlite" from modernc.org/sqlite (pure Go). Times are stored as
// Unix nanoseconds so both drivers read back the same values.
package storage
