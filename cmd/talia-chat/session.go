// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/talia-ai/webchat/chat"
	"github.com/talia-ai/webchat/lib/clock"
	"github.com/talia-ai/webchat/lib/config"
	"github.com/talia-ai/webchat/lib/kvstore"
)

// sessionConfig holds what every engine generation is built from.
type sessionConfig struct {
	Config  *config.Config
	Backend chat.Backend
	Store   kvstore.Store
	View    chat.ChatView
	// Clock is nil outside tests.
	Clock  clock.Clock
	Logger *slog.Logger
}

// session owns the current chat engine. When the idle timeout closes
// an engine, the session builds the next one on the same view, which
// is what reloading the page does in a browser.
type session struct {
	config sessionConfig

	mu      sync.Mutex
	current *chat.Engine
	closed  bool
	// reloads counts replacement engines; tests read it.
	reloads int
	// reloaded is signalled after each replacement engine started.
	reloaded chan struct{}
}

func newSession(config sessionConfig) *session {
	return &session{config: config, reloaded: make(chan struct{}, 1)}
}

// engineOptions maps the config onto chat.Options.
func (s *session) engineOptions() chat.Options {
	cfg := s.config.Config
	hiddenTimeout := cfg.HiddenInactivityTimeout
	if hiddenTimeout == 0 {
		hiddenTimeout = -1
	}
	return chat.Options{
		Backend:         s.config.Backend,
		View:            s.config.View,
		Store:           s.config.Store,
		StorageKey:      cfg.StorageSessionKey,
		Clock:           s.config.Clock,
		Logger:          s.config.Logger,
		HistoryLimit:    cfg.HistoryLimit,
		HistoryInterval: cfg.HistoryInterval,
		RetryDelays:     cfg.RetryDelays,
		Locale:          cfg.Locale,
		FallbackMessage: cfg.FallbackMessage,
		ScrollTolerance: cfg.ScrollTolerance,
		CloseTimeout:    cfg.CloseTimeout,
		ManualLifecycle: !cfg.AutoLifecycle,
		HiddenTimeout:   hiddenTimeout,
		Reload: func() {
			go s.reload()
		},
	}
}

// Start builds and starts the first engine.
func (s *session) Start(ctx context.Context) error {
	engine, err := chat.New(s.engineOptions())
	if err != nil {
		return err
	}
	if err := engine.Start(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = engine
	s.mu.Unlock()
	return nil
}

// reload replaces a torn-down engine with a fresh one.
func (s *session) reload() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.config.View.Clear()
	engine, err := chat.New(s.engineOptions())
	if err == nil {
		err = engine.Start(context.Background())
	}
	if err != nil {
		s.config.Logger.Error("reopening chat session failed", "error", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		engine.Close(context.Background())
		return
	}
	s.current = engine
	s.reloads++
	s.mu.Unlock()
	s.config.Logger.Info("chat session reopened", "session_id", engine.SessionID())
	select {
	case s.reloaded <- struct{}{}:
	default:
	}
}

func (s *session) engine() *chat.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *session) Submit(text string) bool {
	engine := s.engine()
	return engine != nil && engine.Submit(text)
}

func (s *session) SetVisible(visible bool) {
	if engine := s.engine(); engine != nil {
		engine.SetVisible(visible)
	}
}

func (s *session) SessionID() string {
	if engine := s.engine(); engine != nil {
		return engine.SessionID()
	}
	return ""
}

func (s *session) Snapshot() chat.SessionSnapshot {
	if engine := s.engine(); engine != nil {
		return engine.Snapshot()
	}
	return chat.SessionSnapshot{}
}

// Flush waits for the current engine's reply queue to drain.
func (s *session) Flush(ctx context.Context) error {
	engine := s.engine()
	if engine == nil {
		return errors.New("chat session not started")
	}
	return engine.Flush(ctx)
}

// Close closes the current engine and stops further reloads.
func (s *session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	engine := s.current
	s.mu.Unlock()
	if engine == nil {
		return nil
	}
	return engine.Close(ctx)
}
