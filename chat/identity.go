// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talia-ai/webchat/lib/kvstore"
)

// DefaultStorageKey is the key the session id is stored under.
const DefaultStorageKey = "talia-webchat-session"

// GetOrCreateSessionID returns the session id stored under key,
// generating and storing a new one when none is present. Storage
// errors are logged and the generated id is returned anyway, so the
// session lives in memory for this host's lifetime. A nil store
// behaves as an empty store that cannot persist.
func GetOrCreateSessionID(ctx context.Context, store kvstore.Store, key string, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultStorageKey
	}
	if store != nil {
		stored, ok, err := store.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("could not read stored session id", "key", key, "error", err)
		case ok && strings.TrimSpace(stored) != "":
			return stored
		}
	}

	sessionID := newSessionID()
	if store == nil {
		return sessionID
	}
	if err := store.Set(ctx, key, sessionID); err != nil {
		logger.Warn("could not persist new session id",
			"key", key,
			"session_id", sessionID,
			"error", err,
		)
	}
	return sessionID
}

func newSessionID() string {
	return randomID("", "sess")
}

// NewClientMessageID returns an id for one outbound message, used by
// the backend to correlate retries.
func NewClientMessageID() string {
	return randomID("msg-", "msg")
}

// randomID returns prefix+UUID, or fallbackPrefix-<unix ms>-<hex> when
// the secure generator fails.
func randomID(prefix, fallbackPrefix string) string {
	if id, err := uuid.NewRandom(); err == nil {
		return prefix + id.String()
	}
	return fallbackPrefix + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + strconv.FormatUint(rand.Uint64(), 16)
}
