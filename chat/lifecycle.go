// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talia-ai/webchat/lib/clock"
)

// DefaultHiddenTimeout is how long the host may stay hidden before the
// session is closed and the host reloaded.
const DefaultHiddenTimeout = 45 * time.Minute

// LifecycleState is the LifecycleManager state.
type LifecycleState int

const (
	// LifecycleActive: the host is visible and polling runs.
	LifecycleActive LifecycleState = iota
	// LifecyclePaused: the host is hidden, polling is stopped, and the
	// idle timer is armed.
	LifecyclePaused
	// LifecycleClosed is terminal for the engine instance.
	LifecycleClosed
)

func (s LifecycleState) String() string {
	switch s {
	case LifecycleActive:
		return "active"
	case LifecyclePaused:
		return "paused"
	case LifecycleClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PollControl is the part of Poller the lifecycle drives.
type PollControl interface {
	Start()
	Stop()
}

// LifecycleConfig wires a LifecycleManager to the engine.
type LifecycleConfig struct {
	Clock  clock.Clock
	Poller PollControl
	// HiddenTimeout arms the idle timer on hide. Zero means
	// DefaultHiddenTimeout; negative disables the timer.
	HiddenTimeout time.Duration
	// Resync runs one forced history sync after the host becomes
	// visible again.
	Resync func()
	// NotifyClosed sends the closure notice. allowBeacon selects the
	// detached delivery path.
	NotifyClosed func(allowBeacon bool)
	// Teardown stops all engine activity.
	Teardown func()
	// Reload is the host hook run after an idle timeout. May be nil.
	Reload func()
	Logger *slog.Logger
}

// LifecycleManager pauses polling while the host is hidden and closes
// the session when it stays hidden too long.
type LifecycleManager struct {
	config LifecycleConfig

	mu    sync.Mutex
	state LifecycleState
	timer *clock.Timer
	// armed identifies the current timer so a callback racing with
	// SetVisible(true) can tell it was cancelled.
	armed uint64
}

// NewLifecycleManager returns a manager in LifecycleActive.
func NewLifecycleManager(config LifecycleConfig) *LifecycleManager {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.HiddenTimeout == 0 {
		config.HiddenTimeout = DefaultHiddenTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &LifecycleManager{config: config}
}

// State returns the current state.
func (m *LifecycleManager) State() LifecycleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetVisible reports a host visibility change. Hiding stops polling
// and arms the idle timer. Showing a paused host cancels the timer,
// restarts polling, and forces one resync. Ignored once closed.
func (m *LifecycleManager) SetVisible(visible bool) {
	m.mu.Lock()
	if m.state == LifecycleClosed {
		m.mu.Unlock()
		return
	}

	if !visible {
		m.config.Poller.Stop()
		m.cancelTimerLocked()
		m.state = LifecyclePaused
		if m.config.HiddenTimeout > 0 {
			m.armed++
			armed := m.armed
			m.timer = m.config.Clock.AfterFunc(m.config.HiddenTimeout, func() { m.idleTimeout(armed) })
		}
		m.mu.Unlock()
		return
	}

	if m.state != LifecyclePaused {
		m.mu.Unlock()
		return
	}
	m.cancelTimerLocked()
	m.state = LifecycleActive
	m.config.Poller.Start()
	m.mu.Unlock()

	if m.config.Resync != nil {
		m.config.Resync()
	}
}

// Unload closes the session from any state: closure notice (beacon
// preferred), polling stopped, engine torn down. Later calls are
// no-ops.
func (m *LifecycleManager) Unload() {
	m.mu.Lock()
	if m.state == LifecycleClosed {
		m.mu.Unlock()
		return
	}
	m.state = LifecycleClosed
	m.cancelTimerLocked()
	m.mu.Unlock()

	m.config.NotifyClosed(true)
	m.config.Poller.Stop()
	m.config.Teardown()
}

func (m *LifecycleManager) idleTimeout(armed uint64) {
	m.mu.Lock()
	if m.state != LifecyclePaused || m.armed != armed {
		m.mu.Unlock()
		return
	}
	m.state = LifecycleClosed
	m.timer = nil
	m.mu.Unlock()

	m.config.Logger.Info("host hidden past inactivity timeout, closing session",
		"timeout", m.config.HiddenTimeout,
	)
	m.config.NotifyClosed(false)
	m.config.Teardown()
	if m.config.Reload != nil {
		m.config.Reload()
	}
}

func (m *LifecycleManager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.armed++
}
