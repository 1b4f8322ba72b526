// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for webchat packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. Engine
// tests drive every timer through a fake clock; these helpers are the
// only place real wall-clock timeouts appear.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation: session ids and message bodies that must not collide
// with state left by another test against a shared backend.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no webchat-internal dependencies.
package testutil
