// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/talia-ai/webchat/lib/clock"
	"github.com/talia-ai/webchat/webchat"
)

var testEpoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeBackend implements Backend in memory. History returns the
// current page; SendMessage delegates to sendFunc.
type fakeBackend struct {
	mu         sync.Mutex
	page       webchat.HistoryResponse
	historyErr error
	// historyGate, when set, blocks History until a value arrives.
	historyGate chan struct{}
	historyHits chan struct{}
	sendFunc    func(ctx context.Context, request webchat.SendMessageRequest) (*webchat.SendMessageResponse, error)
	requests    []webchat.SendMessageRequest
	closes      []string
	beacons     []string
	beaconOK    bool
	closeHits   chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		historyHits: make(chan struct{}, 256),
		closeHits:   make(chan string, 16),
		beaconOK:    true,
	}
}

func (b *fakeBackend) setHistory(messages ...webchat.HistoryMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page.Messages = messages
}

func (b *fakeBackend) History(ctx context.Context, sessionID string, limit int) (*webchat.HistoryResponse, error) {
	b.mu.Lock()
	gate := b.historyGate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	defer func() {
		select {
		case b.historyHits <- struct{}{}:
		default:
		}
	}()
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	page := b.page
	page.SessionID = sessionID
	page.Messages = append([]webchat.HistoryMessage(nil), b.page.Messages...)
	return &page, nil
}

func (b *fakeBackend) SendMessage(ctx context.Context, request webchat.SendMessageRequest) (*webchat.SendMessageResponse, error) {
	b.mu.Lock()
	b.requests = append(b.requests, request)
	send := b.sendFunc
	b.mu.Unlock()
	if send == nil {
		return &webchat.SendMessageResponse{Reply: "echo: " + request.Content}, nil
	}
	return send(ctx, request)
}

func (b *fakeBackend) CloseSession(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	b.closes = append(b.closes, sessionID)
	b.mu.Unlock()
	b.signalClose("close")
	return nil
}

func (b *fakeBackend) Beacon(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.beaconOK {
		return false
	}
	b.beacons = append(b.beacons, sessionID)
	b.signalClose("beacon")
	return true
}

func (b *fakeBackend) signalClose(kind string) {
	select {
	case b.closeHits <- kind:
	default:
	}
}

func (b *fakeBackend) sentRequests() []webchat.SendMessageRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]webchat.SendMessageRequest(nil), b.requests...)
}

func (b *fakeBackend) closureCount() (closes, beacons int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.closes), len(b.beacons)
}

// userMessage and assistantMessage build stored history entries.
func userMessage(id, content string) webchat.HistoryMessage {
	return webchat.HistoryMessage{
		MessageID: webchat.FlexString(id),
		Direction: webchat.DirectionInbound,
		Content:   content,
		CreatedAt: "2026-03-14T09:00:00Z",
	}
}

func assistantMessage(id, content string) webchat.HistoryMessage {
	return webchat.HistoryMessage{
		MessageID:  webchat.FlexString(id),
		Direction:  webchat.DirectionOutbound,
		Content:    content,
		SenderType: "assistant",
		CreatedAt:  "2026-03-14T09:00:01Z",
	}
}

// countingView wraps MemoryView and counts mutations.
type countingView struct {
	*MemoryView
	mu      sync.Mutex
	appends int
	clears  int
	removes int
}

func newCountingView() *countingView {
	return &countingView{MemoryView: NewMemoryView(20, 400)}
}

func (v *countingView) AppendMessage(message Message) {
	v.mu.Lock()
	v.appends++
	v.mu.Unlock()
	v.MemoryView.AppendMessage(message)
}

func (v *countingView) Clear() {
	v.mu.Lock()
	v.clears++
	v.mu.Unlock()
	v.MemoryView.Clear()
}

func (v *countingView) RemoveLast() bool {
	v.mu.Lock()
	v.removes++
	v.mu.Unlock()
	return v.MemoryView.RemoveLast()
}

func (v *countingView) counts() (appends, clears, removes int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.appends, v.clears, v.removes
}

func (v *countingView) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appends, v.clears, v.removes = 0, 0, 0
}

func contents(messages []Message) []string {
	out := make([]string, len(messages))
	for i, message := range messages {
		out[i] = string(message.Role) + ":" + message.Content
	}
	return out
}

// newTestEngine builds and starts an engine on a fake clock with a
// MemoryView. The engine is closed at test cleanup.
func newTestEngine(t *testing.T, backend *fakeBackend, configure func(*Options)) (*Engine, *MemoryView, *clock.FakeClock) {
	t.Helper()
	fakeClock := clock.Fake(testEpoch)
	view := NewMemoryView(20, 400)
	options := Options{
		Backend: backend,
		View:    view,
		Clock:   fakeClock,
		Logger:  discardLogger(),
	}
	if configure != nil {
		configure(&options)
	}
	engine, err := New(options)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		engine.Close(ctx)
	})
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return engine, view, fakeClock
}

// waitFor polls condition until it holds or five seconds pass.
func waitFor(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second) //nolint:realclock test hang prevention
	for !condition() {
		if time.Now().After(deadline) { //nolint:realclock test hang prevention
			t.Fatalf("timed out waiting for %s", description)
		}
		time.Sleep(time.Millisecond) //nolint:realclock test hang prevention
	}
}

func drain[T any](ch <-chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
