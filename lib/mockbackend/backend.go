// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mockbackend

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/talia-ai/webchat/lib/clock"
	"github.com/talia-ai/webchat/webchat"
)

const (
	// DefaultBasePath is where the widget API is mounted.
	DefaultBasePath = "/api/webchat"
	// DefaultHistoryLimit applies when a history request has no limit.
	DefaultHistoryLimit = 100
	// MaxHistoryLimit caps the limit query parameter.
	MaxHistoryLimit = 500
)

// Responder produces the assistant reply for a visitor message. An
// empty reply is sent as a response without a reply field.
type Responder func(ctx context.Context, sessionID, content string) (string, error)

// EchoResponder answers every message by quoting it.
func EchoResponder(_ context.Context, _ string, content string) (string, error) {
	return "Recibí: " + content, nil
}

// Config configures a Backend.
type Config struct {
	// BasePath is the API root. Empty means DefaultBasePath.
	BasePath string
	// Responder answers visitor messages. Nil means EchoResponder.
	Responder Responder
	// Clock stamps created_at. Nil means the real clock.
	Clock clock.Clock
	// Logger is used for request logging. Nil means slog.Default().
	Logger *slog.Logger
}

// Backend is an in-memory webchat backend. It is safe for concurrent
// use.
type Backend struct {
	basePath  string
	responder Responder
	clock     clock.Clock
	logger    *slog.Logger

	mu           sync.Mutex
	sessions     map[string]*conversation
	nextID       int64
	failSends    int
	conversation int
}

// conversation is the stored state of one session.
type conversation struct {
	conversationID string
	messages       []webchat.HistoryMessage
	clientIDs      map[string]bool
	manualMode     bool
	closed         int
	responses      int
	freshLoads     int
}

// Session is a read-only view of one stored session.
type Session struct {
	SessionID      string
	ConversationID string
	ManualMode     bool
	// Closed counts closure requests.
	Closed int
	// FreshLoads counts sends that carried fresh_load=true.
	FreshLoads int
	Messages   []webchat.HistoryMessage
}

// New creates an empty Backend.
func New(config Config) *Backend {
	if config.BasePath == "" {
		config.BasePath = DefaultBasePath
	}
	if config.Responder == nil {
		config.Responder = EchoResponder
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Backend{
		basePath:  config.BasePath,
		responder: config.Responder,
		clock:     config.Clock,
		logger:    config.Logger,
		sessions:  make(map[string]*conversation),
	}
}

// FailSends makes the next n send requests fail with HTTP 503.
func (b *Backend) FailSends(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failSends = n
}

// SetManualMode switches a session between assistant and human
// operator mode. The session is created if needed.
func (b *Backend) SetManualMode(sessionID string, manual bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionLocked(sessionID).manualMode = manual
}

// PostOperatorMessage stores an outbound message from a human agent,
// as a live operator would write it from the inbox.
func (b *Backend) PostOperatorMessage(sessionID, agentName, content string) webchat.HistoryMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	metadata := map[string]any{}
	if agentName != "" {
		metadata["agent_name"] = agentName
	}
	return b.appendLocked(b.sessionLocked(sessionID), webchat.DirectionOutbound, content, "human", metadata)
}

// Session returns a copy of the stored session, and false if the
// session id has never been seen.
func (b *Backend) Session(sessionID string) (Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored, ok := b.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return Session{
		SessionID:      sessionID,
		ConversationID: stored.conversationID,
		ManualMode:     stored.manualMode,
		Closed:         stored.closed,
		FreshLoads:     stored.freshLoads,
		Messages:       append([]webchat.HistoryMessage(nil), stored.messages...),
	}, true
}

// send stores a visitor message and produces the reply.
func (b *Backend) send(ctx context.Context, request webchat.SendMessageRequest) (*webchat.SendMessageResponse, error) {
	b.mu.Lock()
	if b.failSends > 0 {
		b.failSends--
		b.mu.Unlock()
		return nil, errUnavailable
	}
	stored := b.sessionLocked(request.SessionID)
	if request.FreshLoad {
		stored.freshLoads++
	}
	// A retried send carries the same client message id; store the
	// visitor message once.
	if request.ClientMessageID == "" || !stored.clientIDs[request.ClientMessageID] {
		if request.ClientMessageID != "" {
			stored.clientIDs[request.ClientMessageID] = true
		}
		b.appendLocked(stored, webchat.DirectionInbound, request.Content, "user", nil)
	}
	manual := stored.manualMode
	conversationID := stored.conversationID
	b.mu.Unlock()

	response := &webchat.SendMessageResponse{
		SessionID: request.SessionID,
		Metadata: webchat.ReplyMetadata{
			ConversationID:       conversationID,
			OpenAIConversationID: "oa-" + conversationID,
			ManualMode:           manual,
		},
	}
	if manual {
		return response, nil
	}

	reply, err := b.responder(ctx, request.SessionID, request.Content)
	if err != nil {
		return nil, fmt.Errorf("responder: %w", err)
	}
	if reply == "" {
		return response, nil
	}

	b.mu.Lock()
	stored.responses++
	responseID := "resp-" + strconv.Itoa(stored.responses)
	b.appendLocked(stored, webchat.DirectionOutbound, reply, "assistant", map[string]any{
		"assistant_response_id": responseID,
	})
	b.mu.Unlock()

	response.Reply = reply
	response.Metadata.AssistantResponseID = responseID
	return response, nil
}

// history returns the last limit messages in chronological order.
func (b *Backend) history(sessionID string, limit int) webchat.HistoryResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored, ok := b.sessions[sessionID]
	if !ok {
		return webchat.HistoryResponse{SessionID: sessionID}
	}
	messages := stored.messages
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	response := webchat.HistoryResponse{
		SessionID:      sessionID,
		Messages:       append([]webchat.HistoryMessage(nil), messages...),
		ConversationID: stored.conversationID,
		ManualMode:     stored.manualMode,
	}
	if len(messages) > 0 {
		response.NextSince = messages[len(messages)-1].MessageID.String()
	}
	return response
}

// close records a closure request. Closing an unknown session is not
// an error; the widget may close before its first send.
func (b *Backend) close(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionLocked(sessionID).closed++
}

func (b *Backend) sessionLocked(sessionID string) *conversation {
	stored, ok := b.sessions[sessionID]
	if !ok {
		b.conversation++
		stored = &conversation{
			conversationID: "conv-" + strconv.Itoa(b.conversation),
			clientIDs:      make(map[string]bool),
		}
		b.sessions[sessionID] = stored
	}
	return stored
}

func (b *Backend) appendLocked(stored *conversation, direction, content, senderType string, metadata map[string]any) webchat.HistoryMessage {
	b.nextID++
	message := webchat.HistoryMessage{
		MessageID:  webchat.FlexString(strconv.FormatInt(b.nextID, 10)),
		Direction:  direction,
		Content:    content,
		Metadata:   metadata,
		SenderType: senderType,
		CreatedAt:  webchat.FlexString(b.clock.Now().UTC().Format(time.RFC3339Nano)),
	}
	stored.messages = append(stored.messages, message)
	return message
}
