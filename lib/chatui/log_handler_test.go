// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestLogHandlerSummary(t *testing.T) {
	handler := NewLogHandler(slog.LevelWarn)
	derived := handler.WithAttrs([]slog.Attr{slog.String("session_id", "sess-1")}).(*LogHandler)

	record := slog.NewRecord(time.Now(), slog.LevelError, "assistant reply failed", 0)
	record.AddAttrs(slog.Int("attempts", 3))

	got := derived.summary(record)
	want := "assistant reply failed (session_id=sess-1, attempts=3)"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestLogHandlerLevels(t *testing.T) {
	handler := NewLogHandler(slog.LevelWarn)
	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled at warn level")
	}
	// No program yet: records are dropped without error.
	record := slog.NewRecord(time.Now(), slog.LevelError, "dropped", 0)
	if err := handler.Handle(context.Background(), record); err != nil {
		t.Errorf("Handle without program: %v", err)
	}
}

func TestLogHandlerGroups(t *testing.T) {
	handler := NewLogHandler(slog.LevelInfo).WithGroup("sync").(*LogHandler)
	record := slog.NewRecord(time.Now(), slog.LevelWarn, "history sync failed", 0)
	record.AddAttrs(slog.String("error", "timeout"))
	if got := handler.summary(record); got != "history sync failed (sync.error=timeout)" {
		t.Errorf("summary = %q", got)
	}
}
