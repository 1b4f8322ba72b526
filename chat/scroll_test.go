// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"testing"
)

// pageContainer models a browser scrolling element: content height
// grows with the log and scrollTop is recorded as assigned.
type pageContainer struct {
	view           *MemoryView
	top            int
	viewportHeight int
	sets           []int
}

func (c *pageContainer) ScrollMetrics() ScrollMetrics {
	return ScrollMetrics{
		Top:            c.top,
		ScrollHeight:   c.view.ScrollMetrics().ScrollHeight,
		ViewportHeight: c.viewportHeight,
	}
}

func (c *pageContainer) SetScrollTop(top int) {
	c.top = top
	c.sets = append(c.sets, top)
}

// smoothContainer adds a native scroll primitive that can fail.
type smoothContainer struct {
	pageContainer
	fail      bool
	behaviors []ScrollBehavior
}

func (c *smoothContainer) ScrollTo(top int, behavior ScrollBehavior) error {
	c.behaviors = append(c.behaviors, behavior)
	if c.fail {
		return errors.New("scrollTo unsupported")
	}
	c.top = top
	return nil
}

func fillView(view *MemoryView, count int) {
	for i := range count {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		view.AppendMessage(Message{Role: role, Content: "línea"})
	}
}

func TestScrollAnchorSticksWhenAtBottom(t *testing.T) {
	view := NewMemoryView(20, 400)
	fillView(view, 50)
	container := &pageContainer{view: view, viewportHeight: 400}
	container.top = container.ScrollMetrics().ScrollHeight - container.viewportHeight
	anchor := NewScrollAnchor(container, 0, discardLogger())

	anchor.Mutate(ScrollOptions{Behavior: ScrollSmooth, Force: true}, func() {
		view.AppendMessage(Message{Role: RoleUser, Content: "¿Cuál es el precio?"})
	})

	if want := container.ScrollMetrics().ScrollHeight; container.top != want {
		t.Errorf("scroll top = %d, want new scroll height %d", container.top, want)
	}
}

func TestScrollAnchorDoesNotYankReader(t *testing.T) {
	view := NewMemoryView(20, 400)
	fillView(view, 50)
	container := &pageContainer{view: view, viewportHeight: 400}
	bottom := container.ScrollMetrics().ScrollHeight - container.viewportHeight
	container.top = bottom - 500
	anchor := NewScrollAnchor(container, 0, discardLogger())

	anchor.Mutate(ScrollOptions{}, func() {
		view.AppendMessage(Message{Role: RoleAssistant, Content: "mensaje de fondo"})
	})

	if container.top != bottom-500 {
		t.Errorf("scroll top moved to %d, want %d", container.top, bottom-500)
	}
	if len(container.sets) != 0 {
		t.Errorf("SetScrollTop called %v", container.sets)
	}
}

func TestScrollAnchorToleranceBoundary(t *testing.T) {
	view := NewMemoryView(20, 400)
	fillView(view, 50)
	container := &pageContainer{view: view, viewportHeight: 400}
	bottom := container.ScrollMetrics().ScrollHeight - container.viewportHeight
	anchor := NewScrollAnchor(container, 0, discardLogger())

	container.top = bottom - DefaultScrollTolerance
	if !anchor.NearBottom(0) {
		t.Error("exactly at tolerance should count as near bottom")
	}
	container.top = bottom - DefaultScrollTolerance - 1
	if anchor.NearBottom(0) {
		t.Error("one unit past tolerance should not count as near bottom")
	}
	if !anchor.NearBottom(DefaultScrollTolerance + 1) {
		t.Error("per-call tolerance ignored")
	}
}

func TestScrollAnchorPrefersNativeScroll(t *testing.T) {
	view := NewMemoryView(20, 400)
	container := &smoothContainer{pageContainer: pageContainer{view: view, viewportHeight: 400}}
	anchor := NewScrollAnchor(container, 0, discardLogger())

	anchor.Mutate(ScrollOptions{Behavior: ScrollSmooth, Force: true}, func() { fillView(view, 30) })
	if len(container.behaviors) != 1 || container.behaviors[0] != ScrollSmooth {
		t.Errorf("ScrollTo behaviors = %v, want [smooth]", container.behaviors)
	}
	if len(container.sets) != 0 {
		t.Error("fell back to SetScrollTop although ScrollTo succeeded")
	}

	container.fail = true
	anchor.Mutate(ScrollOptions{Force: true}, func() { fillView(view, 1) })
	if want := container.ScrollMetrics().ScrollHeight; len(container.sets) != 1 || container.sets[0] != want {
		t.Errorf("fallback SetScrollTop calls = %v, want [%d]", container.sets, want)
	}
	if container.behaviors[1] != ScrollAuto {
		t.Errorf("empty behavior should scroll as auto, got %q", container.behaviors[1])
	}
}

func TestScrollAnchorWithoutContainer(t *testing.T) {
	anchor := NewScrollAnchor(nil, 0, discardLogger())
	ran := false
	anchor.Mutate(ScrollOptions{Force: true}, func() { ran = true })
	if !ran {
		t.Error("mutation did not run")
	}
	if anchor.NearBottom(0) {
		t.Error("NearBottom without a container should be false")
	}
}

func TestMemoryViewClampsScrollTop(t *testing.T) {
	view := NewMemoryView(10, 100)
	fillView(view, 30)
	view.SetScrollTop(1 << 20)
	metrics := view.ScrollMetrics()
	if metrics.DistanceToBottom() != 0 {
		t.Errorf("distance to bottom = %d after scrolling past the end", metrics.DistanceToBottom())
	}
	view.ScrollBy(-50)
	if got := view.ScrollMetrics().DistanceToBottom(); got != 50 {
		t.Errorf("distance after scrolling up 50 = %d", got)
	}
	view.SetScrollTop(-10)
	if got := view.ScrollMetrics().Top; got != 0 {
		t.Errorf("negative scroll top clamped to %d", got)
	}
}
