// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"sync"

	"github.com/talia-ai/webchat/webchat"
)

// renderer serializes every mutation of the view. Methods ending in
// Locked expect mu to be held; the others take it.
type renderer struct {
	mu     sync.Mutex
	view   ChatView
	anchor *ScrollAnchor

	// typingShown tracks the indicator on screen. replyPending tracks
	// that a send is outstanding, which outlives a rebuild that
	// temporarily removes the indicator.
	typingShown  bool
	replyPending bool

	// provisional is the run of LocalEcho messages at the end of the
	// view, oldest first.
	provisional []Message

	// sinceSend holds the server-confirmed messages rendered while the
	// current send was outstanding.
	sinceSend []Message
}

func (r *renderer) appendMessage(message Message, options ScrollOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchor.Mutate(options, func() { r.appendLocked(message) })
}

// appendReply renders a reply taken from a send response. It returns
// false without rendering when a sync already rendered the server's
// copy while the send was outstanding.
func (r *renderer) appendReply(message Message, options ScrollOptions) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, confirmed := range r.sinceSend {
		if confirmed.Matches(message) {
			return false
		}
	}
	r.anchor.Mutate(options, func() { r.appendLocked(message) })
	return true
}

func (r *renderer) appendLocked(message Message) {
	r.view.AppendMessage(message)
	if message.LocalEcho {
		r.provisional = append(r.provisional, message)
		return
	}
	r.provisional = r.provisional[:0]
	if r.replyPending {
		r.sinceSend = append(r.sinceSend, message)
	}
}

// removeLastLocked removes the newest message. When the view has
// nothing to remove the provisional run is forgotten, since the view
// no longer holds it.
func (r *renderer) removeLastLocked() {
	if !r.view.RemoveLast() {
		r.provisional = r.provisional[:0]
		return
	}
	if len(r.provisional) > 0 {
		r.provisional = r.provisional[:len(r.provisional)-1]
	}
}

// showTyping marks the start of a send.
func (r *renderer) showTyping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinceSend = r.sinceSend[:0]
	r.showTypingLocked()
}

func (r *renderer) showTypingLocked() {
	if !r.typingShown {
		r.anchor.Mutate(ScrollOptions{}, r.view.ShowTyping)
		r.typingShown = true
	}
	r.replyPending = true
}

func (r *renderer) hideTyping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hideTypingLocked(false)
}

func (r *renderer) hideTypingLocked(preservePending bool) {
	if r.typingShown {
		r.view.HideTyping()
	}
	r.typingShown = false
	if !preservePending {
		r.replyPending = false
	}
}

// appendDeltaLocked renders the tail of an extended history page.
// When the page confirms any provisional message at the end of the
// view, the run is removed newest first, the server copies are
// appended, and the unconfirmed rest of the run is rendered again
// after them. Otherwise a trailing echo that the first item confirms
// is replaced. Items that repeat the current tail are skipped.
func (r *renderer) appendDeltaLocked(items []webchat.HistoryMessage, options ScrollOptions) {
	if len(items) == 0 {
		return
	}
	messages := make([]Message, len(items))
	for i, item := range items {
		messages[i] = MessageFromHistory(item)
	}

	r.anchor.Mutate(options, func() {
		hadTyping := r.typingShown
		if hadTyping {
			r.hideTypingLocked(true)
		}

		unconfirmed, confirmed := splitProvisional(r.provisional, messages)
		if confirmed {
			for len(r.provisional) > 0 {
				r.removeLastLocked()
			}
		} else if last, ok := r.view.LastMessage(); ok && last.LocalEcho && last.Matches(messages[0]) {
			r.removeLastLocked()
		}

		for _, message := range messages {
			if tail, ok := r.view.LastMessage(); ok && tail.Matches(message) {
				if !tail.LocalEcho {
					continue
				}
				r.removeLastLocked()
			}
			r.appendLocked(message)
		}
		for _, message := range unconfirmed {
			r.appendLocked(message)
		}

		if hadTyping {
			r.view.ShowTyping()
			r.typingShown = true
			r.replyPending = true
		}
	})
}

// splitProvisional matches each confirmed message against at most one
// provisional message by (role, content). It returns the provisional
// messages left unmatched, in order, and whether anything matched.
func splitProvisional(provisional, confirmed []Message) ([]Message, bool) {
	if len(provisional) == 0 {
		return nil, false
	}
	used := make([]bool, len(confirmed))
	var unconfirmed []Message
	for _, pending := range provisional {
		found := false
		for i, message := range confirmed {
			if !used[i] && pending.Matches(message) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			unconfirmed = append(unconfirmed, pending)
		}
	}
	return unconfirmed, len(unconfirmed) < len(provisional)
}

// rebuildLocked replaces the whole log with items. A pending reply
// keeps its typing indicator.
func (r *renderer) rebuildLocked(items []webchat.HistoryMessage, options ScrollOptions) {
	restoreTyping := r.replyPending
	r.hideTypingLocked(restoreTyping)
	r.anchor.Mutate(options, func() {
		r.view.Clear()
		r.provisional = r.provisional[:0]
		for _, item := range items {
			r.appendLocked(MessageFromHistory(item))
		}
		if restoreTyping {
			r.view.ShowTyping()
			r.typingShown = true
		}
	})
}
