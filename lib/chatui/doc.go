// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the terminal front end of the webchat client.
//
// [View] implements chat.ChatView and chat.ScrollContainer over
// terminal lines, so the engine's scroll anchoring works unchanged:
// a reader scrolled up stays put while polls append, and sends snap
// the log to the bottom. Assistant and operator messages render as
// markdown (goldmark, with chroma for fenced code).
//
// [Model] is the bubbletea program around the View: a log viewport
// with a scrollbar, a textarea for input, a spinner for the typing
// indicator, and a status line fed by [LogHandler]. Terminal focus
// events drive the engine's visibility, the terminal counterpart of
// a browser tab being hidden.
package chatui
