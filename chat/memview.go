// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"slices"
	"strings"
	"sync"
)

// MemoryView is a ChatView and ScrollContainer that keeps the log in
// memory. Each message is as tall as its line count (plus one line for
// an operator label) times the line height; the typing indicator is
// one line. It is safe for concurrent use.
type MemoryView struct {
	mu             sync.Mutex
	messages       []Message
	typing         bool
	lineHeight     int
	viewportHeight int
	top            int
}

// NewMemoryView returns an empty view. Non-positive sizes are treated
// as 1.
func NewMemoryView(lineHeight, viewportHeight int) *MemoryView {
	return &MemoryView{
		lineHeight:     max(lineHeight, 1),
		viewportHeight: max(viewportHeight, 1),
	}
}

func (v *MemoryView) AppendMessage(message Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, message)
}

func (v *MemoryView) RemoveLast() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.messages) == 0 {
		return false
	}
	v.messages = v.messages[:len(v.messages)-1]
	return true
}

func (v *MemoryView) LastMessage() (Message, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.messages) == 0 {
		return Message{}, false
	}
	return v.messages[len(v.messages)-1], true
}

func (v *MemoryView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = nil
}

func (v *MemoryView) ShowTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = true
}

func (v *MemoryView) HideTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = false
}

// Messages returns a copy of the rendered log.
func (v *MemoryView) Messages() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.messages)
}

// Typing reports whether the typing indicator is shown.
func (v *MemoryView) Typing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.typing
}

// ScrollMetrics implements ScrollContainer. Top is clamped to the
// scrollable range, as a browser clamps scrollTop.
func (v *MemoryView) ScrollMetrics() ScrollMetrics {
	v.mu.Lock()
	defer v.mu.Unlock()
	height := v.scrollHeightLocked()
	return ScrollMetrics{
		Top:            min(v.top, max(height-v.viewportHeight, 0)),
		ScrollHeight:   height,
		ViewportHeight: v.viewportHeight,
	}
}

// SetScrollTop implements ScrollContainer.
func (v *MemoryView) SetScrollTop(top int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.top = min(max(top, 0), max(v.scrollHeightLocked()-v.viewportHeight, 0))
}

// ScrollBy moves the viewport by delta, as a reader scrolling would.
func (v *MemoryView) ScrollBy(delta int) {
	metrics := v.ScrollMetrics()
	v.SetScrollTop(metrics.Top + delta)
}

// Transcript renders the log as plain text, one "role: content" entry
// per message.
func (v *MemoryView) Transcript() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var builder strings.Builder
	for _, message := range v.messages {
		if label := message.Label(); label != "" {
			builder.WriteString("[" + label + "]\n")
		}
		builder.WriteString(string(message.Role))
		builder.WriteString(": ")
		builder.WriteString(message.Content)
		builder.WriteString("\n")
	}
	if v.typing {
		builder.WriteString("assistant: ...\n")
	}
	return builder.String()
}

func (v *MemoryView) scrollHeightLocked() int {
	lines := 0
	for _, message := range v.messages {
		lines += strings.Count(message.Content, "\n") + 1
		if message.Role == RoleHuman {
			lines++
		}
	}
	if v.typing {
		lines++
	}
	return lines * v.lineHeight
}

var (
	_ ChatView        = (*MemoryView)(nil)
	_ ScrollContainer = (*MemoryView)(nil)
)
