// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the pieces of the terminal client that do not
// depend on the chat engine: the color theme and the scrollbar.
// Built for bubbletea and lipgloss.
package tui
