// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/talia-ai/webchat/lib/clock"
	"github.com/talia-ai/webchat/webchat"
)

const (
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries = 2

	// DefaultLocale is sent when the host does not name one.
	DefaultLocale = "es-MX"

	// fallbackRetryDelay is used when the schedule is empty or holds a
	// non-positive entry.
	fallbackRetryDelay = 1500 * time.Millisecond
)

// DefaultRetryDelays is the wait before retry 1 and retry 2.
var DefaultRetryDelays = []time.Duration{time.Second, 2 * time.Second}

// TransportConfig configures a RetryingTransport.
type TransportConfig struct {
	Sender Sender
	State  *SessionState
	// Clock times the waits between attempts. Nil means the real clock.
	Clock clock.Clock
	// RetryDelays is the wait before each retry. When there are more
	// retries than entries the last entry repeats. Nil means
	// DefaultRetryDelays.
	RetryDelays []time.Duration
	// Locale is sent with every message. Empty means DefaultLocale.
	Locale string
	Logger *slog.Logger
}

// RetryingTransport sends one message with bounded retries on a fixed
// schedule. It does not serialize callers; ReplyQueue does.
type RetryingTransport struct {
	sender      Sender
	state       *SessionState
	clock       clock.Clock
	retryDelays []time.Duration
	locale      string
	logger      *slog.Logger
}

// NewRetryingTransport returns a transport bound to config.State.
func NewRetryingTransport(config TransportConfig) *RetryingTransport {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.RetryDelays == nil {
		config.RetryDelays = DefaultRetryDelays
	}
	if config.Locale == "" {
		config.Locale = DefaultLocale
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RetryingTransport{
		sender:      config.Sender,
		state:       config.State,
		clock:       config.Clock,
		retryDelays: config.RetryDelays,
		locale:      config.Locale,
		logger:      config.Logger,
	}
}

// Send delivers content, retrying up to MaxRetries times. A failure is
// a transport error, a non-2xx status, or ErrEmptyReply. Each attempt
// rebuilds the payload from the current session state. After the last
// attempt fails, or ctx ends, the result is a *TransportError.
func (t *RetryingTransport) Send(ctx context.Context, content, clientMessageID string) (*webchat.SendMessageResponse, error) {
	for attempt := 0; ; attempt++ {
		response, err := t.attempt(ctx, content, clientMessageID)
		if err == nil {
			return response, nil
		}
		if attempt >= MaxRetries || ctx.Err() != nil {
			return nil, &TransportError{Attempts: attempt + 1, Err: err}
		}

		delay := t.retryDelay(attempt)
		t.logger.Debug("retrying message send",
			"session_id", t.state.SessionID(),
			"client_message_id", clientMessageID,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		select {
		case <-t.clock.After(delay):
		case <-ctx.Done():
			return nil, &TransportError{Attempts: attempt + 1, Err: errors.Join(err, ctx.Err())}
		}
	}
}

func (t *RetryingTransport) attempt(ctx context.Context, content, clientMessageID string) (*webchat.SendMessageResponse, error) {
	request := t.state.sendRequest(content, clientMessageID, t.locale)
	response, err := t.sender.SendMessage(ctx, request)
	if err != nil {
		return nil, err
	}
	// Any parsed 2xx body ends the fresh-load window, even one that is
	// rejected below as empty.
	t.state.clearFreshLoad()
	if response.Reply == "" && !response.Metadata.ManualMode {
		return nil, ErrEmptyReply
	}
	return response, nil
}

// retryDelay returns the wait before retry number attempt+1.
func (t *RetryingTransport) retryDelay(attempt int) time.Duration {
	if len(t.retryDelays) == 0 {
		return fallbackRetryDelay
	}
	delay := t.retryDelays[min(attempt, len(t.retryDelays)-1)]
	if delay <= 0 {
		return fallbackRetryDelay
	}
	return delay
}
