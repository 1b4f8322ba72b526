// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"slices"
	"sync"

	"github.com/talia-ai/webchat/webchat"
)

// SessionState is the per-session state shared by sends and syncs. It
// is safe for concurrent use.
type SessionState struct {
	mu                      sync.Mutex
	sessionID               string
	conversationID          string
	externalConversationRef string
	lastAssistantResponseID string
	manualMode              bool
	freshLoad               bool
	historyIdentities       []string
}

// NewSessionState returns state for a host that just started: fresh
// load set, nothing known about the conversation.
func NewSessionState(sessionID string) *SessionState {
	return &SessionState{sessionID: sessionID, freshLoad: true}
}

// SessionSnapshot is a point-in-time copy of SessionState.
type SessionSnapshot struct {
	SessionID      string
	ConversationID string
	// ExternalConversationRef is the backend's openai_conversation_id.
	ExternalConversationRef string
	LastAssistantResponseID string
	ManualMode              bool
	FreshLoad               bool
	// HistoryIdentities is the identity list of the last applied
	// history page.
	HistoryIdentities []string
}

// Snapshot returns a copy of the current state.
func (s *SessionState) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		SessionID:               s.sessionID,
		ConversationID:          s.conversationID,
		ExternalConversationRef: s.externalConversationRef,
		LastAssistantResponseID: s.lastAssistantResponseID,
		ManualMode:              s.manualMode,
		FreshLoad:               s.freshLoad,
		HistoryIdentities:       slices.Clone(s.historyIdentities),
	}
}

// SessionID returns the session token.
func (s *SessionState) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *SessionState) setSessionID(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
}

// sendRequest builds the payload for one send attempt from the
// current state.
func (s *SessionState) sendRequest(content, clientMessageID, locale string) webchat.SendMessageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	request := webchat.SendMessageRequest{
		SessionID:       s.sessionID,
		Author:          webchat.AuthorUser,
		Content:         content,
		Locale:          locale,
		FreshLoad:       s.freshLoad,
		ClientMessageID: clientMessageID,
	}
	metadata := webchat.MessageMetadata{
		ConversationID:       s.conversationID,
		OpenAIConversationID: s.externalConversationRef,
		AssistantResponseID:  s.lastAssistantResponseID,
	}
	if !metadata.IsZero() {
		request.Metadata = &metadata
	}
	return request
}

func (s *SessionState) clearFreshLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freshLoad = false
}

func (s *SessionState) mergeReply(metadata webchat.ReplyMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if metadata.ConversationID != "" {
		s.conversationID = metadata.ConversationID
	}
	if metadata.OpenAIConversationID != "" {
		s.externalConversationRef = metadata.OpenAIConversationID
	}
	if metadata.AssistantResponseID != "" {
		s.lastAssistantResponseID = metadata.AssistantResponseID
	}
	s.manualMode = metadata.ManualMode
}

func (s *SessionState) mergeHistory(response *webchat.HistoryResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if response.ConversationID != "" {
		s.conversationID = response.ConversationID
	}
	s.manualMode = response.ManualMode
}

func (s *SessionState) lastHistory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyIdentities
}

func (s *SessionState) setLastHistory(identities []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyIdentities = identities
}
