// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mockbackend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talia-ai/webchat/lib/clock"
	"github.com/talia-ai/webchat/lib/testutil"
	"github.com/talia-ai/webchat/webchat"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestBackend(t *testing.T, config Config) (*Backend, *webchat.Client) {
	t.Helper()
	if config.Clock == nil {
		config.Clock = clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	}
	config.Logger = slog.New(slog.DiscardHandler)
	backend := New(config)
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	client, err := webchat.NewClient(webchat.ClientConfig{
		BaseURL: server.URL + DefaultBasePath,
		Logger:  slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return backend, client
}

func TestSendAndHistory(t *testing.T) {
	backend, client := newTestBackend(t, Config{})
	ctx := context.Background()

	response, err := client.SendMessage(ctx, webchat.SendMessageRequest{
		SessionID: "sess-1",
		Content:   "hola",
		Locale:    "es-MX",
		FreshLoad: true,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if response.Reply != "Recibí: hola" {
		t.Errorf("Reply = %q", response.Reply)
	}
	if response.Metadata.ConversationID == "" || response.Metadata.AssistantResponseID == "" {
		t.Errorf("metadata missing conversation state: %+v", response.Metadata)
	}
	if response.Metadata.ManualMode {
		t.Error("ManualMode should be false")
	}

	history, err := client.History(ctx, "sess-1", 100)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history.Messages) != 2 {
		t.Fatalf("history has %d messages, want 2", len(history.Messages))
	}
	user, reply := history.Messages[0], history.Messages[1]
	if user.Direction != webchat.DirectionInbound || user.Content != "hola" {
		t.Errorf("first message = %+v", user)
	}
	if reply.Direction != webchat.DirectionOutbound || reply.Content != "Recibí: hola" {
		t.Errorf("second message = %+v", reply)
	}
	if user.MessageID == "" || user.MessageID == reply.MessageID {
		t.Errorf("message ids should be distinct and set: %q, %q", user.MessageID, reply.MessageID)
	}
	if user.CreatedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("CreatedAt = %q", user.CreatedAt)
	}
	if history.ConversationID != response.Metadata.ConversationID {
		t.Errorf("history conversation %q, send conversation %q", history.ConversationID, response.Metadata.ConversationID)
	}
	if history.NextSince != reply.MessageID.String() {
		t.Errorf("NextSince = %q, want last message id", history.NextSince)
	}

	session, ok := backend.Session("sess-1")
	if !ok {
		t.Fatal("session not stored")
	}
	if session.FreshLoads != 1 {
		t.Errorf("FreshLoads = %d, want 1", session.FreshLoads)
	}
}

func TestHistoryLimitKeepsLatest(t *testing.T) {
	_, client := newTestBackend(t, Config{})
	ctx := context.Background()

	for _, content := range []string{"uno", "dos", "tres"} {
		if _, err := client.SendMessage(ctx, webchat.SendMessageRequest{SessionID: "sess-1", Content: content}); err != nil {
			t.Fatalf("SendMessage(%q): %v", content, err)
		}
	}

	history, err := client.History(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history.Messages) != 2 {
		t.Fatalf("history has %d messages, want 2", len(history.Messages))
	}
	if history.Messages[0].Content != "tres" || history.Messages[1].Content != "Recibí: tres" {
		t.Errorf("expected the latest two messages in order, got %q, %q",
			history.Messages[0].Content, history.Messages[1].Content)
	}
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	_, client := newTestBackend(t, Config{})

	history, err := client.History(context.Background(), testutil.UniqueID("sess-unknown"), 100)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history.Messages) != 0 || history.ManualMode {
		t.Errorf("expected empty history, got %+v", history)
	}
}

func TestRetriedSendStoredOnce(t *testing.T) {
	backend, client := newTestBackend(t, Config{})
	ctx := context.Background()
	request := webchat.SendMessageRequest{SessionID: "sess-1", Content: "hola", ClientMessageID: "msg-1"}

	for range 2 {
		if _, err := client.SendMessage(ctx, request); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}

	session, _ := backend.Session("sess-1")
	inbound := 0
	for _, message := range session.Messages {
		if message.Direction == webchat.DirectionInbound {
			inbound++
		}
	}
	if inbound != 1 {
		t.Errorf("stored %d visitor messages for one client id, want 1", inbound)
	}
}

func TestFailSends(t *testing.T) {
	backend, client := newTestBackend(t, Config{})
	backend.FailSends(1)
	ctx := context.Background()

	_, err := client.SendMessage(ctx, webchat.SendMessageRequest{SessionID: "sess-1", Content: "hola"})
	if !webchat.IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("expected HTTP 503, got %v", err)
	}

	response, err := client.SendMessage(ctx, webchat.SendMessageRequest{SessionID: "sess-1", Content: "hola"})
	if err != nil {
		t.Fatalf("second SendMessage: %v", err)
	}
	if response.Reply == "" {
		t.Error("expected a reply once failures are exhausted")
	}
}

func TestManualModeAndOperator(t *testing.T) {
	backend, client := newTestBackend(t, Config{})
	ctx := context.Background()
	backend.SetManualMode("sess-1", true)

	response, err := client.SendMessage(ctx, webchat.SendMessageRequest{SessionID: "sess-1", Content: "hola"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if response.Reply != "" || !response.Metadata.ManualMode {
		t.Errorf("manual mode response = %+v", response)
	}

	backend.PostOperatorMessage("sess-1", "Ana", "Hola, soy Ana")

	history, err := client.History(ctx, "sess-1", 100)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if !history.ManualMode {
		t.Error("history should report manual mode")
	}
	last := history.Messages[len(history.Messages)-1]
	if last.SenderType != "human" || last.Metadata["agent_name"] != "Ana" {
		t.Errorf("operator message = %+v", last)
	}
}

func TestResponderError(t *testing.T) {
	_, client := newTestBackend(t, Config{
		Responder: func(context.Context, string, string) (string, error) {
			return "", errors.New("model offline")
		},
	})

	_, err := client.SendMessage(context.Background(), webchat.SendMessageRequest{SessionID: "sess-1", Content: "hola"})
	if !webchat.IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("expected HTTP 500, got %v", err)
	}
}

func TestEmptyReplyOmitted(t *testing.T) {
	_, client := newTestBackend(t, Config{
		Responder: func(context.Context, string, string) (string, error) { return "", nil },
	})

	response, err := client.SendMessage(context.Background(), webchat.SendMessageRequest{SessionID: "sess-1", Content: "hola"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if response.Reply != "" {
		t.Errorf("Reply = %q, want empty", response.Reply)
	}
}

func TestCloseSession(t *testing.T) {
	backend, client := newTestBackend(t, Config{})

	if err := client.CloseSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if !client.Beacon("sess-1") {
		t.Fatal("Beacon should queue")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	session, ok := backend.Session("sess-1")
	if !ok || session.Closed != 2 {
		t.Errorf("Closed = %d, want 2", session.Closed)
	}
}

func TestRequestValidation(t *testing.T) {
	backend := New(Config{Logger: slog.New(slog.DiscardHandler)})
	handler := backend.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"send without content", http.MethodPost, "/api/webchat/messages", `{"session_id":"s"}`, http.StatusBadRequest},
		{"send malformed", http.MethodPost, "/api/webchat/messages", `{`, http.StatusBadRequest},
		{"history without session", http.MethodGet, "/api/webchat/messages", "", http.StatusBadRequest},
		{"history bad limit", http.MethodGet, "/api/webchat/messages?session_id=s&limit=-1", "", http.StatusBadRequest},
		{"close without session", http.MethodPost, "/api/webchat/close", `{}`, http.StatusBadRequest},
		{"operator without content", http.MethodPost, "/api/webchat/operator/messages", `{"session_id":"s"}`, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/api/webchat/operator/sessions/nope", "", http.StatusNotFound},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := httptest.NewRequest(test.method, test.path, strings.NewReader(test.body))
			request.Header.Set("Content-Type", "application/json")
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)
			if recorder.Code != test.status {
				t.Errorf("status = %d, want %d (body %s)", recorder.Code, test.status, recorder.Body.String())
			}
		})
	}
}

func TestOperatorEndpoints(t *testing.T) {
	backend := New(Config{Logger: slog.New(slog.DiscardHandler)})
	handler := backend.Handler()

	serve := func(method, path, body string) int {
		request := httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder.Code
	}

	if code := serve(http.MethodPost, "/api/webchat/operator/manual", `{"session_id":"s","manual_mode":true}`); code != http.StatusOK {
		t.Fatalf("manual mode status = %d", code)
	}
	if code := serve(http.MethodPost, "/api/webchat/operator/messages", `{"session_id":"s","agent_name":"Ana","content":"hola"}`); code != http.StatusCreated {
		t.Fatalf("operator message status = %d", code)
	}
	if code := serve(http.MethodGet, "/api/webchat/operator/sessions/s", ""); code != http.StatusOK {
		t.Fatalf("session status = %d", code)
	}

	session, _ := backend.Session("s")
	if !session.ManualMode || len(session.Messages) != 1 {
		t.Errorf("session = %+v", session)
	}
}
