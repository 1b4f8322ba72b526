// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/talia-ai/webchat/lib/clock"
	"github.com/talia-ai/webchat/lib/kvstore"
)

// DefaultFallbackMessage is rendered when a reply could not be
// obtained after every retry.
const DefaultFallbackMessage = "Tu mensaje llegó, pero tuve un problema momentáneo al responder. Intentemos de nuevo en unos segundos o envíame otra línea."

// DefaultCloseTimeout bounds a direct closure request.
const DefaultCloseTimeout = 5 * time.Second

// Options configures an Engine. View and Backend are required; every
// other zero field takes the documented default.
type Options struct {
	Backend Backend
	View    ChatView
	// ScrollContainer overrides the view as the scrolling container.
	// When nil the view is used if it implements ScrollContainer.
	ScrollContainer ScrollContainer
	// Store persists the session id. Nil means an in-memory store.
	Store kvstore.Store
	// StorageKey is the key the session id is stored under.
	StorageKey string
	Clock      clock.Clock
	Logger     *slog.Logger

	HistoryLimit    int
	HistoryInterval time.Duration
	RetryDelays     []time.Duration
	Locale          string
	FallbackMessage string
	ScrollTolerance int
	CloseTimeout    time.Duration

	// ManualLifecycle leaves visibility handling to the host:
	// SetVisible is ignored and no idle timer runs.
	ManualLifecycle bool
	// HiddenTimeout is the idle limit while hidden. Zero means
	// DefaultHiddenTimeout; negative disables it.
	HiddenTimeout time.Duration
	// Reload is called after an idle timeout closed the session. The
	// host is expected to discard this engine and build a new one.
	Reload func()
}

// Engine is one chat session bound to one view.
type Engine struct {
	backend         Backend
	store           kvstore.Store
	storageKey      string
	clock           clock.Clock
	logger          *slog.Logger
	fallbackMessage string
	closeTimeout    time.Duration

	state     *SessionState
	render    *renderer
	transport *RetryingTransport
	history   *HistorySynchronizer
	poller    *Poller
	queue     *ReplyQueue
	lifecycle *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc

	startOnce    sync.Once
	started      chan struct{}
	teardownOnce sync.Once

	// backgroundMu orders background.Add against the cancel in
	// teardown, so no sync starts once Wait may be running.
	backgroundMu sync.Mutex
	background   sync.WaitGroup
}

// New validates options and builds a stopped engine. Call Start to
// resolve the session and begin syncing.
func New(options Options) (*Engine, error) {
	if options.View == nil {
		return nil, errors.New("chat: View is required")
	}
	if options.Backend == nil {
		return nil, errors.New("chat: Backend is required")
	}
	if options.Store == nil {
		options.Store = kvstore.NewMemory()
	}
	if options.StorageKey == "" {
		options.StorageKey = DefaultStorageKey
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.HistoryLimit <= 0 {
		options.HistoryLimit = DefaultHistoryLimit
	}
	if options.FallbackMessage == "" {
		options.FallbackMessage = DefaultFallbackMessage
	}
	if options.CloseTimeout <= 0 {
		options.CloseTimeout = DefaultCloseTimeout
	}
	container := options.ScrollContainer
	if container == nil {
		container, _ = options.View.(ScrollContainer)
	}

	ctx, cancel := context.WithCancel(context.Background())
	engine := &Engine{
		backend:         options.Backend,
		store:           options.Store,
		storageKey:      options.StorageKey,
		clock:           options.Clock,
		logger:          options.Logger,
		fallbackMessage: options.FallbackMessage,
		closeTimeout:    options.CloseTimeout,
		state:           NewSessionState(""),
		render: &renderer{
			view:   options.View,
			anchor: NewScrollAnchor(container, options.ScrollTolerance, options.Logger),
		},
		ctx:     ctx,
		cancel:  cancel,
		started: make(chan struct{}),
	}
	engine.transport = NewRetryingTransport(TransportConfig{
		Sender:      options.Backend,
		State:       engine.state,
		Clock:       options.Clock,
		RetryDelays: options.RetryDelays,
		Locale:      options.Locale,
		Logger:      options.Logger,
	})
	engine.queue = NewReplyQueue(ctx, engine.handleReply, options.Logger)
	engine.poller = NewPoller(options.Clock, options.HistoryInterval, func() {
		engine.goSync(false, true)
	})
	engine.history = &HistorySynchronizer{
		source: options.Backend,
		state:  engine.state,
		render: engine.render,
		limit:  options.HistoryLimit,
		logger: options.Logger,
		gate:   engine.poller,
	}
	if !options.ManualLifecycle {
		engine.lifecycle = NewLifecycleManager(LifecycleConfig{
			Clock:         options.Clock,
			Poller:        engine.poller,
			HiddenTimeout: options.HiddenTimeout,
			Resync:        func() { engine.goSync(true, false) },
			NotifyClosed:  engine.notifyClosed,
			Teardown:      engine.teardown,
			Reload:        options.Reload,
			Logger:        options.Logger,
		})
	}
	return engine, nil
}

// Start resolves the session id, renders the server history (forced
// sync), and starts polling. Only the first call has any effect.
func (e *Engine) Start(ctx context.Context) error {
	if e.ctx.Err() != nil {
		return errors.New("chat: engine is closed")
	}
	e.startOnce.Do(func() {
		sessionID := GetOrCreateSessionID(ctx, e.store, e.storageKey, e.logger)
		e.state.setSessionID(sessionID)
		close(e.started)

		e.logger.Info("chat session started", "session_id", sessionID)
		e.history.sync(e.ctx, true, false)
		if e.ctx.Err() == nil {
			e.poller.Start()
		}
	})
	return nil
}

// Submit renders text as a local echo and queues it for delivery. It
// reports false for blank input or when the engine is not running.
func (e *Engine) Submit(text string) bool {
	content := strings.TrimSpace(text)
	if content == "" || !e.running() {
		return false
	}
	e.render.appendMessage(Message{Role: RoleUser, Content: content, LocalEcho: true},
		ScrollOptions{Behavior: ScrollSmooth, Force: true})
	return e.queue.Enqueue(ReplyJob{Content: content, ClientMessageID: NewClientMessageID()})
}

// StartPolling starts (or restarts) the history poll interval.
func (e *Engine) StartPolling() {
	if e.running() {
		e.poller.Start()
	}
}

// StopPolling stops the poll interval. A fetch already in flight is
// discarded when it returns.
func (e *Engine) StopPolling() {
	e.poller.Stop()
}

// Polling reports whether the poll interval is running.
func (e *Engine) Polling() bool {
	return e.poller.Running()
}

// SetVisible reports host visibility. No-op with ManualLifecycle.
func (e *Engine) SetVisible(visible bool) {
	if e.lifecycle == nil || !e.running() {
		return
	}
	e.lifecycle.SetVisible(visible)
}

// Lifecycle returns the lifecycle state. With ManualLifecycle it is
// LifecycleActive until Close.
func (e *Engine) Lifecycle() LifecycleState {
	if e.lifecycle != nil {
		return e.lifecycle.State()
	}
	if e.ctx.Err() != nil {
		return LifecycleClosed
	}
	return LifecycleActive
}

// Sync runs one history sync on the caller's goroutine.
func (e *Engine) Sync(ctx context.Context, force bool) SyncOutcome {
	return e.history.Sync(ctx, force)
}

// Flush waits until every submitted message has been answered (or
// failed), or ctx ends.
func (e *Engine) Flush(ctx context.Context) error {
	return e.queue.Flush(ctx)
}

// Close sends the closure notice, stops polling, and tears the engine
// down, then waits for background syncs until ctx ends.
func (e *Engine) Close(ctx context.Context) error {
	if e.lifecycle != nil {
		e.lifecycle.Unload()
	} else {
		e.teardownOnce.Do(func() {
			e.notifyClosed(true)
			e.teardown()
		})
	}
	return e.waitContext(ctx)
}

// Done is closed once the engine has been torn down, by Close or by
// the idle timeout.
func (e *Engine) Done() <-chan struct{} {
	return e.ctx.Done()
}

// SessionID returns the session id, or "" before Start.
func (e *Engine) SessionID() string {
	return e.state.SessionID()
}

// Snapshot returns a copy of the session state.
func (e *Engine) Snapshot() SessionSnapshot {
	e.render.mu.Lock()
	defer e.render.mu.Unlock()
	return e.state.Snapshot()
}

// Wait blocks until background syncs have finished. Call it after
// StopPolling or Close; a running poller can start new syncs at any
// time.
func (e *Engine) Wait() {
	e.background.Wait()
}

func (e *Engine) waitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("chat: waiting for background syncs: %w", ctx.Err())
	}
}

func (e *Engine) running() bool {
	select {
	case <-e.started:
		return e.ctx.Err() == nil
	default:
		return false
	}
}

// handleReply is the ReplyQueue job: typing indicator, send, merge
// metadata, render the reply or the fallback, resync.
func (e *Engine) handleReply(ctx context.Context, job ReplyJob) {
	e.render.showTyping()
	response, err := e.transport.Send(ctx, job.Content, job.ClientMessageID)
	if err != nil {
		e.render.hideTyping()
		if ctx.Err() != nil {
			return
		}
		e.logger.Error("assistant reply failed",
			"session_id", e.state.SessionID(),
			"client_message_id", job.ClientMessageID,
			"error", err,
		)
		e.render.appendMessage(Message{Role: RoleAssistant, Content: e.fallbackMessage},
			ScrollOptions{Behavior: ScrollSmooth, Force: true})
		e.goSync(false, false)
		return
	}

	e.state.mergeReply(response.Metadata)
	e.render.hideTyping()
	if !response.Metadata.ManualMode && response.Reply != "" {
		rendered := e.render.appendReply(Message{
			Role:      RoleAssistant,
			Content:   response.Reply,
			Metadata:  response.Metadata.Fields,
			LocalEcho: true,
		}, ScrollOptions{Behavior: ScrollSmooth, Force: true})
		if !rendered {
			e.logger.Debug("reply already rendered by history sync",
				"session_id", e.state.SessionID(),
				"client_message_id", job.ClientMessageID,
			)
		}
	}
	e.goSync(false, false)
}

// goSync runs one sync on its own goroutine, tracked by Wait.
func (e *Engine) goSync(force, checkStale bool) {
	e.backgroundMu.Lock()
	if e.ctx.Err() != nil {
		e.backgroundMu.Unlock()
		return
	}
	e.background.Add(1)
	e.backgroundMu.Unlock()
	go func() {
		defer e.background.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				e.logger.Error("history sync panicked",
					"panic", recovered,
					"stack", string(debug.Stack()),
				)
			}
		}()
		e.history.sync(e.ctx, force, checkStale)
	}()
}

// notifyClosed sends the best-effort closure notice. Failures are only
// logged at debug.
func (e *Engine) notifyClosed(allowBeacon bool) {
	sessionID := e.state.SessionID()
	if sessionID == "" {
		return
	}
	if allowBeacon && e.backend.Beacon(sessionID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.closeTimeout)
	defer cancel()
	if err := e.backend.CloseSession(ctx, sessionID); err != nil {
		e.logger.Debug("session closure notice failed",
			"session_id", sessionID,
			"error", err,
		)
	}
}

// teardown stops polling, cancels in-flight work, and stops the queue
// worker.
func (e *Engine) teardown() {
	e.poller.Stop()
	e.backgroundMu.Lock()
	e.cancel()
	e.backgroundMu.Unlock()
	e.queue.Close()
	e.render.mu.Lock()
	e.render.hideTypingLocked(false)
	e.render.mu.Unlock()
	e.poller.Wait()
}
