// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webchat

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Direction values used by the backend for stored messages.
const (
	// DirectionInbound is a message from the visitor.
	DirectionInbound = "entrante"
	// DirectionOutbound is a message to the visitor, written either by
	// the assistant or by a human operator.
	DirectionOutbound = "saliente"
)

// AuthorUser is the only author the widget ever sends.
const AuthorUser = "user"

// FlexString decodes a JSON string, number, or boolean into its text
// form. null decodes as the empty string. The backend emits message ids
// and timestamps as either strings or numbers depending on the store.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = FlexString(text)
	default:
		// Numbers and booleans keep their literal form, which is how
		// the widget stringified them.
		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*s = FlexString(data)
	}
	return nil
}

// String returns the decoded text.
func (s FlexString) String() string { return string(s) }

// MessageMetadata is the conversation context the widget echoes back
// on every send so the backend can continue the same thread. Empty
// fields are omitted.
type MessageMetadata struct {
	ConversationID       string `json:"conversation_id,omitempty"`
	OpenAIConversationID string `json:"openai_conversation_id,omitempty"`
	AssistantResponseID  string `json:"assistant_response_id,omitempty"`
}

// IsZero reports whether no field is set.
func (m MessageMetadata) IsZero() bool {
	return m.ConversationID == "" && m.OpenAIConversationID == "" && m.AssistantResponseID == ""
}

// SendMessageRequest is the body of POST {base}/messages.
type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Locale    string `json:"locale"`
	// FreshLoad is true only on the first send after the host started,
	// so the backend can tell a reconnect from a new visitor.
	FreshLoad       bool             `json:"fresh_load"`
	Metadata        *MessageMetadata `json:"metadata,omitempty"`
	ClientMessageID string           `json:"client_message_id,omitempty"`
}

// ReplyMetadata is the metadata block of a send response. The typed
// fields are extracted from Fields, which holds every key the backend
// sent (renderers may use extra keys such as agent_name).
type ReplyMetadata struct {
	ConversationID       string
	OpenAIConversationID string
	AssistantResponseID  string
	// ManualMode is set when a human operator has taken over and the
	// assistant will not answer.
	ManualMode bool
	Fields     map[string]any
}

// UnmarshalJSON implements json.Unmarshaler. Non-object metadata
// decodes as empty.
func (m *ReplyMetadata) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		*m = ReplyMetadata{}
		return nil
	}
	*m = ReplyMetadata{
		ConversationID:       textValue(fields["conversation_id"]),
		OpenAIConversationID: textValue(fields["openai_conversation_id"]),
		AssistantResponseID:  textValue(fields["assistant_response_id"]),
		ManualMode:           truthy(fields["manual_mode"]),
		Fields:               fields,
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Fields is written first and
// the typed fields override it, so a round trip is stable.
func (m ReplyMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Fields)+4)
	for key, value := range m.Fields {
		out[key] = value
	}
	setText := func(key, value string) {
		if value != "" {
			out[key] = value
		} else {
			delete(out, key)
		}
	}
	setText("conversation_id", m.ConversationID)
	setText("openai_conversation_id", m.OpenAIConversationID)
	setText("assistant_response_id", m.AssistantResponseID)
	if m.ManualMode {
		out["manual_mode"] = true
	} else {
		delete(out, "manual_mode")
	}
	return json.Marshal(out)
}

// SendMessageResponse is the body returned by POST {base}/messages.
type SendMessageResponse struct {
	SessionID string        `json:"session_id,omitempty"`
	Reply     string        `json:"-"`
	Metadata  ReplyMetadata `json:"metadata"`
}

// UnmarshalJSON implements json.Unmarshaler. A non-string reply
// decodes as empty, which the caller treats as "no usable reply".
func (r *SendMessageResponse) UnmarshalJSON(data []byte) error {
	var wire struct {
		SessionID FlexString    `json:"session_id"`
		Reply     any           `json:"reply"`
		Metadata  ReplyMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	reply, _ := wire.Reply.(string)
	*r = SendMessageResponse{
		SessionID: wire.SessionID.String(),
		Reply:     reply,
		Metadata:  wire.Metadata,
	}
	return nil
}

// MarshalJSON implements json.Marshaler. An empty Reply is omitted,
// which is how the backend answers in manual mode.
func (r SendMessageResponse) MarshalJSON() ([]byte, error) {
	type wire struct {
		SessionID string        `json:"session_id,omitempty"`
		Reply     string        `json:"reply,omitempty"`
		Metadata  ReplyMetadata `json:"metadata"`
	}
	return json.Marshal(wire{SessionID: r.SessionID, Reply: r.Reply, Metadata: r.Metadata})
}

// HistoryMessage is one stored message as returned by the history
// endpoint.
type HistoryMessage struct {
	MessageID  FlexString     `json:"message_id,omitempty"`
	ID         FlexString     `json:"id,omitempty"`
	Direction  string         `json:"direction"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	SenderType string         `json:"sender_type,omitempty"`
	CreatedAt  FlexString     `json:"created_at"`
}

// UnmarshalJSON implements json.Unmarshaler. Non-string content and
// non-object metadata decode as empty rather than failing the page.
func (m *HistoryMessage) UnmarshalJSON(data []byte) error {
	var wire struct {
		MessageID  FlexString `json:"message_id"`
		ID         FlexString `json:"id"`
		Direction  any        `json:"direction"`
		Content    any        `json:"content"`
		Metadata   any        `json:"metadata"`
		SenderType any        `json:"sender_type"`
		CreatedAt  FlexString `json:"created_at"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	content, _ := wire.Content.(string)
	direction, _ := wire.Direction.(string)
	senderType, _ := wire.SenderType.(string)
	metadata, _ := wire.Metadata.(map[string]any)
	*m = HistoryMessage{
		MessageID:  wire.MessageID,
		ID:         wire.ID,
		Direction:  direction,
		Content:    content,
		Metadata:   metadata,
		SenderType: senderType,
		CreatedAt:  wire.CreatedAt,
	}
	return nil
}

// HistoryResponse is the body returned by GET {base}/messages.
type HistoryResponse struct {
	SessionID      string
	Messages       []HistoryMessage
	ConversationID string
	ManualMode     bool
	// NextSince is a cursor the backend may send; the widget always
	// fetches the latest page and does not use it.
	NextSince string
}

// UnmarshalJSON implements json.Unmarshaler. A missing or non-array
// messages field decodes as an empty history.
func (r *HistoryResponse) UnmarshalJSON(data []byte) error {
	var wire struct {
		SessionID      FlexString      `json:"session_id"`
		Messages       json.RawMessage `json:"messages"`
		ConversationID FlexString      `json:"conversation_id"`
		ManualMode     any             `json:"manual_mode"`
		NextSince      FlexString      `json:"next_since"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var messages []HistoryMessage
	if trimmed := bytes.TrimSpace(wire.Messages); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return err
		}
	}
	*r = HistoryResponse{
		SessionID:      wire.SessionID.String(),
		Messages:       messages,
		ConversationID: wire.ConversationID.String(),
		ManualMode:     truthy(wire.ManualMode),
		NextSince:      wire.NextSince.String(),
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r HistoryResponse) MarshalJSON() ([]byte, error) {
	type wire struct {
		SessionID      string           `json:"session_id,omitempty"`
		Messages       []HistoryMessage `json:"messages"`
		ConversationID string           `json:"conversation_id,omitempty"`
		ManualMode     bool             `json:"manual_mode"`
		NextSince      string           `json:"next_since,omitempty"`
	}
	messages := r.Messages
	if messages == nil {
		messages = []HistoryMessage{}
	}
	return json.Marshal(wire{
		SessionID:      r.SessionID,
		Messages:       messages,
		ConversationID: r.ConversationID,
		ManualMode:     r.ManualMode,
		NextSince:      r.NextSince,
	})
}

// CloseRequest is the body of POST {base}/close.
type CloseRequest struct {
	SessionID string `json:"session_id"`
}

// textValue renders an identifier-like JSON value as text. Missing,
// null, and empty values yield "".
func textValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return ""
	}
}

// truthy follows the loose truthiness the widget applied to flags:
// false, 0, "", null, and missing are false; everything else is true.
func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case float64:
		return typed != 0
	case string:
		return typed != ""
	default:
		return true
	}
}
