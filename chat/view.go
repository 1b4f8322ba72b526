// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

// ChatView is the rendering surface the engine drives. Calls are
// serialized by the engine; implementations do not need their own
// locking unless something else also touches them.
type ChatView interface {
	// AppendMessage adds a message at the end of the log.
	AppendMessage(message Message)

	// RemoveLast removes the last message and reports whether there
	// was one. The typing indicator is not a message.
	RemoveLast() bool

	// LastMessage returns the most recently rendered message.
	LastMessage() (Message, bool)

	// Clear removes every message. The typing indicator is not
	// affected.
	Clear()

	// ShowTyping displays the pending-reply indicator below the last
	// message. HideTyping removes it.
	ShowTyping()
	HideTyping()
}

// ScrollMetrics describes a scrolling container in whatever unit the
// view measures (pixels, terminal lines).
type ScrollMetrics struct {
	// Top is the offset of the first visible unit.
	Top int
	// ScrollHeight is the total content height.
	ScrollHeight int
	// ViewportHeight is the visible height.
	ViewportHeight int
}

// DistanceToBottom returns how far the viewport's lower edge is from
// the end of the content.
func (m ScrollMetrics) DistanceToBottom() int {
	return m.ScrollHeight - (m.Top + m.ViewportHeight)
}

// ScrollContainer is implemented by views that scroll.
type ScrollContainer interface {
	ScrollMetrics() ScrollMetrics
	SetScrollTop(top int)
}

// ScrollBehavior selects how a scroll is animated.
type ScrollBehavior string

const (
	// ScrollAuto jumps directly to the target.
	ScrollAuto ScrollBehavior = "auto"
	// ScrollSmooth animates to the target when the view can.
	ScrollSmooth ScrollBehavior = "smooth"
)

// SmoothScroller is implemented by containers with a native scroll
// primitive. An error makes the anchor fall back to SetScrollTop.
type SmoothScroller interface {
	ScrollTo(top int, behavior ScrollBehavior) error
}
