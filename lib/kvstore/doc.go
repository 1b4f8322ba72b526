// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package kvstore is the durable client-side storage the chat engine
// keeps its session id in: the Go counterpart of a browser's
// localStorage.
//
// [Store] is deliberately tiny (string keys, string values) because
// the engine persists exactly one value. Four backends exist:
//
//   - [Memory]: process-lifetime only. The default, and what the engine
//     degrades to in spirit when persistence is unavailable.
//   - [FileStore]: one CBOR file, rewritten atomically. The default for
//     the terminal client; survives restarts like localStorage survives
//     reloads.
//   - [SQLiteStore]: a table in a SQLite database, for hosts that
//     already keep local state in SQLite or run several processes
//     against one state directory.
//   - [RedisStore]: a Redis keyspace, for headless hosts that run on
//     many machines but must present one stable visitor identity.
//
// Backend failures are returned as [*Error]. The engine logs and
// swallows them; a broken store never stops a conversation.
package kvstore
