// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"

	"github.com/talia-ai/webchat/webchat"
)

// Sender delivers one outbound message.
type Sender interface {
	SendMessage(ctx context.Context, request webchat.SendMessageRequest) (*webchat.SendMessageResponse, error)
}

// HistorySource returns the server's view of a conversation.
type HistorySource interface {
	History(ctx context.Context, sessionID string, limit int) (*webchat.HistoryResponse, error)
}

// SessionCloser delivers the closure notice. Beacon queues a detached
// notice and reports false when it cannot; CloseSession is the direct
// request used otherwise.
type SessionCloser interface {
	CloseSession(ctx context.Context, sessionID string) error
	Beacon(sessionID string) bool
}

// Backend is everything the engine needs from the webchat API.
// *webchat.Client implements it.
type Backend interface {
	Sender
	HistorySource
	SessionCloser
}

var _ Backend = (*webchat.Client)(nil)
