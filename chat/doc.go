// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat is the session and history synchronization engine behind
// the webchat widget. It owns everything between the user pressing
// enter and a consistent conversation log on screen.
//
// An [Engine] composes the parts:
//
//   - [GetOrCreateSessionID] resolves the durable session token from a
//     kvstore.Store.
//   - [RetryingTransport] delivers one message with a fixed retry
//     schedule and treats an empty reply as a failure unless a human
//     operator has taken over (manual mode).
//   - [ReplyQueue] runs sends one at a time in submission order on a
//     single worker goroutine, so reply k is never rendered before
//     reply k-1.
//   - [HistorySynchronizer] fetches the server's history and reconciles
//     it against the last snapshot: no-op when unchanged, incremental
//     append when the server list extends the snapshot, full rebuild
//     otherwise. [Poller] drives it on an interval.
//   - [ScrollAnchor] keeps a view stuck to the bottom across mutations
//     unless the reader has scrolled away.
//   - [LifecycleManager] pauses polling while the host is hidden and
//     closes the session after a long idle period.
//
// Locally submitted messages, and replies taken straight from a send
// response, are rendered immediately as provisional local echoes. Only
// history reconciliation removes them: when an incremental page
// confirms any of the trailing provisional run by role and content, the
// run is replaced by the server's copies and the unconfirmed items are
// rendered again after them. Items that exactly repeat the current tail
// are skipped.
//
// Rendering goes through the narrow [ChatView] interface. Views that
// scroll implement [ScrollContainer], and optionally [SmoothScroller].
// [MemoryView] is a complete in-memory implementation with simple line
// geometry, used by headless hosts and tests.
//
// All view mutations and snapshot updates happen under one engine
// mutex. Network calls never hold it.
package chat
