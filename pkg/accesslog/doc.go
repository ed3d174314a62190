// Package accesslog persists one record per answered request.
//
// The event loop hands every finished exchange to a Recorder, which queues
// it without blocking and writes it to a Storage backend from a background
// goroutine. A full queue drops records and counts them. Backends live in
// the storage subpackage: "sqlite" (github.com/mattn/go-sqlite3), the cgo-free
// "sqlite-pure" (modernc.org/sqlite) and "memory".
//
// A Pruner deletes records past the retention window, on demand or on a
// cron schedule.
package accesslog
