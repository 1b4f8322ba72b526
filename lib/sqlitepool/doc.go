// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases with a fixed set of
// pragmas and hands out pooled connections.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers Take a
// connection, run SQL with sqlitex.Execute, and Put it back. A
// connection is not safe for concurrent use; the pool is.
//
// Every connection gets:
//
//   - journal_mode=WAL so a reader never blocks the writer.
//   - synchronous=NORMAL: committed writes survive a process crash.
//   - busy_timeout=5000 so two hosts sharing one state file wait for
//     the write lock instead of failing with SQLITE_BUSY.
//   - temp_store=MEMORY.
//
// The webchat host stores a handful of rows (the session id and
// friends), so the pool defaults to two connections.
package sqlitepool
