// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "log/slog"

// DefaultScrollTolerance is how close to the bottom, in container
// units, still counts as "at the bottom".
const DefaultScrollTolerance = 160

// ScrollOptions controls how one mutation affects scrolling.
type ScrollOptions struct {
	Behavior ScrollBehavior
	// Force scrolls to the bottom even when the reader had scrolled
	// away. Set for the user's own message and for direct replies.
	Force bool
	// Tolerance overrides the anchor's tolerance when positive.
	Tolerance int
}

// ScrollAnchor keeps a container stuck to the bottom across content
// mutations without pulling a reader who scrolled up back down.
type ScrollAnchor struct {
	container ScrollContainer
	tolerance int
	logger    *slog.Logger
}

// NewScrollAnchor returns an anchor for container. A nil container
// yields an anchor that only runs mutations. A non-positive tolerance
// means DefaultScrollTolerance.
func NewScrollAnchor(container ScrollContainer, tolerance int, logger *slog.Logger) *ScrollAnchor {
	if tolerance <= 0 {
		tolerance = DefaultScrollTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrollAnchor{container: container, tolerance: tolerance, logger: logger}
}

// NearBottom reports whether the container is within tolerance of its
// bottom. Without a container it reports false.
func (a *ScrollAnchor) NearBottom(tolerance int) bool {
	if a.container == nil {
		return false
	}
	if tolerance <= 0 {
		tolerance = a.tolerance
	}
	return a.container.ScrollMetrics().DistanceToBottom() <= tolerance
}

// Mutate runs mutate and then scrolls to the new bottom if the
// container was near the bottom beforehand or options.Force is set.
func (a *ScrollAnchor) Mutate(options ScrollOptions, mutate func()) {
	if a.container == nil {
		mutate()
		return
	}
	stick := options.Force || a.NearBottom(options.Tolerance)
	mutate()
	if stick {
		a.scrollToBottom(options.Behavior)
	}
}

func (a *ScrollAnchor) scrollToBottom(behavior ScrollBehavior) {
	if behavior == "" {
		behavior = ScrollAuto
	}
	target := a.container.ScrollMetrics().ScrollHeight
	if scroller, ok := a.container.(SmoothScroller); ok {
		err := scroller.ScrollTo(target, behavior)
		if err == nil {
			return
		}
		a.logger.Debug("native scroll failed, setting offset directly",
			"behavior", string(behavior),
			"error", err,
		)
	}
	a.container.SetScrollTop(target)
}
