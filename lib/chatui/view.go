// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/talia-ai/webchat/chat"
	"github.com/talia-ai/webchat/lib/tui"
)

// TypingText follows the spinner while a reply is pending.
const TypingText = "Tal-IA está escribiendo…"

// bodyIndent is the left margin of message bodies under the name line.
const bodyIndent = "  "

// View is the terminal rendition of the conversation log. The engine
// mutates it from its own goroutines through chat.ChatView and
// chat.ScrollContainer; the bubbletea model reads it through Render.
// Scroll units are terminal lines. It is safe for concurrent use.
type View struct {
	mu      sync.Mutex
	theme   tui.Theme
	entries []entry
	typing  bool
	width   int
	height  int
	top     int

	changes chan struct{}
}

// entry caches the rendered lines of one message at one width.
type entry struct {
	message chat.Message
	width   int
	lines   []string
}

// NewView returns an empty view sized 80x20 until SetSize is called.
func NewView(theme tui.Theme) *View {
	return &View{
		theme:   theme,
		width:   80,
		height:  20,
		changes: make(chan struct{}, 1),
	}
}

// Changes delivers a value after any mutation. Bursts coalesce into
// one pending notification.
func (v *View) Changes() <-chan struct{} {
	return v.changes
}

func (v *View) notify() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

func (v *View) AppendMessage(message chat.Message) {
	v.mu.Lock()
	v.entries = append(v.entries, entry{message: message})
	v.mu.Unlock()
	v.notify()
}

func (v *View) RemoveLast() bool {
	v.mu.Lock()
	removed := len(v.entries) > 0
	if removed {
		v.entries = v.entries[:len(v.entries)-1]
	}
	v.mu.Unlock()
	if removed {
		v.notify()
	}
	return removed
}

func (v *View) LastMessage() (chat.Message, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.entries) == 0 {
		return chat.Message{}, false
	}
	return v.entries[len(v.entries)-1].message, true
}

func (v *View) Clear() {
	v.mu.Lock()
	v.entries = nil
	v.top = 0
	v.mu.Unlock()
	v.notify()
}

func (v *View) ShowTyping() {
	v.setTyping(true)
}

func (v *View) HideTyping() {
	v.setTyping(false)
}

func (v *View) setTyping(typing bool) {
	v.mu.Lock()
	changed := v.typing != typing
	v.typing = typing
	v.mu.Unlock()
	if changed {
		v.notify()
	}
}

// Typing reports whether the typing indicator is shown.
func (v *View) Typing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.typing
}

// SetSize sets the width used for wrapping and the viewport height.
func (v *View) SetSize(width, height int) {
	v.mu.Lock()
	v.width = max(width, 20)
	v.height = max(height, 1)
	v.top = v.clampLocked(v.top)
	v.mu.Unlock()
	v.notify()
}

// ScrollMetrics implements chat.ScrollContainer.
func (v *View) ScrollMetrics() chat.ScrollMetrics {
	v.mu.Lock()
	defer v.mu.Unlock()
	return chat.ScrollMetrics{
		Top:            v.clampLocked(v.top),
		ScrollHeight:   v.totalLinesLocked(),
		ViewportHeight: v.height,
	}
}

// SetScrollTop implements chat.ScrollContainer.
func (v *View) SetScrollTop(top int) {
	v.mu.Lock()
	v.top = v.clampLocked(top)
	v.mu.Unlock()
	v.notify()
}

// ScrollBy moves the viewport by delta lines.
func (v *View) ScrollBy(delta int) {
	v.mu.Lock()
	v.top = v.clampLocked(v.top + delta)
	v.mu.Unlock()
	v.notify()
}

// ScrollToBottom shows the newest lines.
func (v *View) ScrollToBottom() {
	v.mu.Lock()
	v.top = v.clampLocked(v.totalLinesLocked())
	v.mu.Unlock()
	v.notify()
}

// Render returns the full log as lines, with the typing line showing
// frame, and the clamped scroll offset.
func (v *View) Render(frame string) (lines []string, top int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for index := range v.entries {
		lines = append(lines, v.linesLocked(index)...)
	}
	if v.typing {
		style := lipgloss.NewStyle().Foreground(v.theme.FaintText).Italic(true)
		lines = append(lines, frame+" "+style.Render(TypingText))
	}
	return lines, v.clampLocked(v.top)
}

func (v *View) clampLocked(top int) int {
	return min(max(top, 0), max(v.totalLinesLocked()-v.height, 0))
}

func (v *View) totalLinesLocked() int {
	total := 0
	for index := range v.entries {
		total += len(v.linesLocked(index))
	}
	if v.typing {
		total++
	}
	return total
}

func (v *View) linesLocked(index int) []string {
	cached := &v.entries[index]
	if cached.lines == nil || cached.width != v.width {
		cached.lines = renderMessage(cached.message, v.theme, v.width)
		cached.width = v.width
	}
	return cached.lines
}

// renderMessage lays out one message: an optional operator notice, a
// name line, the body indented under it, and a blank separator.
func renderMessage(message chat.Message, theme tui.Theme, width int) []string {
	var lines []string
	if label := message.Label(); label != "" {
		notice := lipgloss.NewStyle().Foreground(theme.OperatorLabel).Italic(true)
		for _, line := range strings.Split(ansi.Wrap(label, width, wrapBreakpoints), "\n") {
			lines = append(lines, notice.Render(line))
		}
	}

	name := lipgloss.NewStyle().Bold(true).Foreground(theme.RoleColor(string(message.Role))).Render(speaker(message))
	if message.LocalEcho && message.Role == chat.RoleUser {
		name += " " + lipgloss.NewStyle().Foreground(theme.FaintText).Render("· enviando")
	}
	lines = append(lines, name)

	bodyWidth := width - len(bodyIndent)
	var body string
	if message.Role == chat.RoleUser {
		body = lipgloss.NewStyle().Foreground(theme.NormalText).Render(ansi.Wrap(message.Content, bodyWidth, wrapBreakpoints))
	} else {
		body = renderMarkdown(message.Content, theme, bodyWidth)
	}
	for _, line := range strings.Split(body, "\n") {
		lines = append(lines, bodyIndent+line)
	}
	return append(lines, "")
}

func speaker(message chat.Message) string {
	switch message.Role {
	case chat.RoleUser:
		return "Tú"
	case chat.RoleHuman:
		return message.AgentName()
	default:
		return "Tal-IA"
	}
}

var (
	_ chat.ChatView        = (*View)(nil)
	_ chat.ScrollContainer = (*View)(nil)
)
