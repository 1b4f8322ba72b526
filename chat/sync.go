// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
)

// DefaultHistoryLimit is the page size requested from the history
// endpoint.
const DefaultHistoryLimit = 100

// SyncOutcome reports what one Sync call did.
type SyncOutcome int

const (
	// SyncSkipped means another sync was in flight.
	SyncSkipped SyncOutcome = iota
	// SyncUnchanged means the server list equals the snapshot.
	SyncUnchanged
	// SyncAppended means only the new tail was rendered.
	SyncAppended
	// SyncRebuilt means the log was cleared and rebuilt.
	SyncRebuilt
	// SyncFailed means the fetch failed. The log is untouched.
	SyncFailed
	// SyncStale means polling was stopped while the fetch was out and
	// the result was discarded.
	SyncStale
)

func (o SyncOutcome) String() string {
	switch o {
	case SyncSkipped:
		return "skipped"
	case SyncUnchanged:
		return "unchanged"
	case SyncAppended:
		return "appended"
	case SyncRebuilt:
		return "rebuilt"
	case SyncFailed:
		return "failed"
	case SyncStale:
		return "stale"
	default:
		return "unknown"
	}
}

// pollGate exposes the poller state the staleness check needs.
type pollGate interface {
	Running() bool
	Generation() uint64
}

// HistorySynchronizer reconciles the rendered log against the server's
// history. At most one sync runs at a time; overlapping calls are
// skipped, not queued.
type HistorySynchronizer struct {
	source HistorySource
	state  *SessionState
	render *renderer
	limit  int
	logger *slog.Logger
	gate   pollGate

	inFlight atomic.Bool
}

// Sync fetches history and applies it. With force set the log is
// always rebuilt and scrolled to the bottom. A non-forced result is
// discarded when polling was stopped during the fetch and is still
// stopped.
func (s *HistorySynchronizer) Sync(ctx context.Context, force bool) SyncOutcome {
	return s.sync(ctx, force, !force)
}

func (s *HistorySynchronizer) sync(ctx context.Context, force, checkStale bool) SyncOutcome {
	if !s.inFlight.CompareAndSwap(false, true) {
		return SyncSkipped
	}
	defer s.inFlight.Store(false)

	var generation uint64
	if s.gate != nil {
		generation = s.gate.Generation()
	}
	sessionID := s.state.SessionID()
	response, err := s.source.History(ctx, sessionID, s.limit)
	if err != nil {
		s.logger.Warn("history sync failed",
			"session_id", sessionID,
			"error", err,
		)
		return SyncFailed
	}
	if checkStale && s.gate != nil && !s.gate.Running() && s.gate.Generation() != generation {
		s.logger.Debug("discarding history fetched before polling stopped",
			"session_id", sessionID,
		)
		return SyncStale
	}

	s.state.mergeHistory(response)
	identities := historyIdentities(response.Messages)

	s.render.mu.Lock()
	defer s.render.mu.Unlock()

	previous := s.state.lastHistory()
	if !force {
		if slices.Equal(identities, previous) {
			return SyncUnchanged
		}
		if isExtension(previous, identities) {
			s.render.appendDeltaLocked(response.Messages[len(previous):], ScrollOptions{Behavior: ScrollAuto})
			s.state.setLastHistory(identities)
			return SyncAppended
		}
	}

	options := ScrollOptions{Behavior: ScrollAuto}
	if force {
		options = ScrollOptions{Behavior: ScrollSmooth, Force: true}
	}
	s.render.rebuildLocked(response.Messages, options)
	s.state.setLastHistory(identities)
	return SyncRebuilt
}

// isExtension reports whether next starts with every identity of
// previous and is longer.
func isExtension(previous, next []string) bool {
	return len(next) > len(previous) && slices.Equal(previous, next[:len(previous)])
}
