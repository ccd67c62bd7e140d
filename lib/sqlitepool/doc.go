// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool backing
// GPUScope's local storage. It wraps zombiezen.com/go/sqlite with the
// pragmas a telemetry recorder wants: WAL journal mode so the
// dashboard can read while the sampling loop writes, NORMAL
// synchronous for process-crash durability without an fsync per
// sample, and a busy timeout instead of immediate SQLITE_BUSY under
// write contention.
//
// The package is deliberately thin. Callers [Pool.Take] a connection,
// write SQL with sqlitex.Execute, and [Pool.Put] it back; there is no
// query builder and no attempt to hide SQLite's connection model.
// Connections are not safe for concurrent use, so each goroutine
// holds its own for the duration of its work.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "~/.local/share/gpuscope/history.db",
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
package sqlitepool
