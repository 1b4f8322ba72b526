// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"fmt"
	"strings"

	"github.com/talia-ai/webchat/webchat"
)

// Role is who authored a rendered message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleHuman is a human operator who took over the conversation.
	RoleHuman Role = "human"
)

// DefaultAgentName labels operator messages whose metadata carries no
// agent_name.
const DefaultAgentName = "sin nombre"

// Message is one entry of the rendered conversation log.
type Message struct {
	// Identity is the server identity (see MessageIdentity). Empty
	// for messages rendered locally: echoes, queue replies, and the
	// fallback message.
	Identity string
	Role     Role
	Content  string
	Metadata map[string]any
	// LocalEcho marks a message rendered before history confirmed it:
	// the visitor's own message, or a reply taken from the send
	// response. The next history page that carries it replaces it.
	LocalEcho bool
}

// Matches reports whether two messages have the same role and
// content, which is all reconciliation compares.
func (m Message) Matches(other Message) bool {
	return m.Role == other.Role && m.Content == other.Content
}

// AgentName returns the operator name for RoleHuman messages.
func (m Message) AgentName() string {
	if name, ok := m.Metadata["agent_name"].(string); ok {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return DefaultAgentName
}

// Label returns the banner shown above operator messages, or "" for
// other roles.
func (m Message) Label() string {
	if m.Role != RoleHuman {
		return ""
	}
	return fmt.Sprintf("Este mensaje es de 'humano': '%s', ya no hablas con Tal-IA", m.AgentName())
}

// MessageIdentity returns the identity used to diff history pages: the
// server message_id, else id, else a composite of direction, creation
// time, and content. Two distinct messages with equal content and
// timestamp collide under the composite form.
func MessageIdentity(message webchat.HistoryMessage) string {
	if message.MessageID != "" {
		return message.MessageID.String()
	}
	if message.ID != "" {
		return message.ID.String()
	}
	return message.Direction + "-" + message.CreatedAt.String() + "-" + message.Content
}

// HistoryRole maps a stored message to a rendered role. Anything not
// outbound is the visitor; outbound messages from a sender type
// starting with "human" are operator messages.
func HistoryRole(message webchat.HistoryMessage) Role {
	if message.Direction != webchat.DirectionOutbound {
		return RoleUser
	}
	if strings.HasPrefix(strings.ToLower(message.SenderType), "human") {
		return RoleHuman
	}
	return RoleAssistant
}

// MessageFromHistory converts a stored message for rendering.
func MessageFromHistory(message webchat.HistoryMessage) Message {
	return Message{
		Identity: MessageIdentity(message),
		Role:     HistoryRole(message),
		Content:  message.Content,
		Metadata: message.Metadata,
	}
}

func historyIdentities(messages []webchat.HistoryMessage) []string {
	identities := make([]string, len(messages))
	for i, message := range messages {
		identities[i] = MessageIdentity(message)
	}
	return identities
}
