// Package storage provides access log storage backends.
//
// Two implementations of accesslog.Store exist:
//
//   - SQLiteStore: persistent storage on a single SQLite file, using the
//     pure-Go modernc.org/sqlite driver so builds stay CGO-free. WAL
//     mode is on by default for concurrent reads during writes.
//   - MemoryStore: a bounded in-memory ring, for tests and for
//     deployments that only need the query API over recent traffic.
package storage
