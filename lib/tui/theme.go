// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the webchat terminal client.
// All colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Speaker colors, used for the name line above each message.
	UserForeground      lipgloss.Color
	AssistantForeground lipgloss.Color
	HumanForeground     lipgloss.Color

	// OperatorLabel colors the notice above human operator messages.
	OperatorLabel lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	Accent           lipgloss.Color // Spinner, focused scrollbar thumb.

	// Status bar log levels.
	WarningText lipgloss.Color
	ErrorText   lipgloss.Color

	// LinkForeground colors link text in rendered markdown.
	LinkForeground lipgloss.Color

	// CodeStyle is the chroma style name for fenced code blocks.
	CodeStyle string
}

// RoleColor returns the name-line color for a message role ("user",
// "assistant", "human"). Unknown roles use NormalText.
func (theme Theme) RoleColor(role string) lipgloss.Color {
	switch role {
	case "user":
		return theme.UserForeground
	case "assistant":
		return theme.AssistantForeground
	case "human":
		return theme.HumanForeground
	default:
		return theme.NormalText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	UserForeground:      lipgloss.Color("75"),  // blue
	AssistantForeground: lipgloss.Color("114"), // green
	HumanForeground:     lipgloss.Color("220"), // amber

	OperatorLabel: lipgloss.Color("180"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	Accent:           lipgloss.Color("141"), // light purple

	WarningText: lipgloss.Color("214"),
	ErrorText:   lipgloss.Color("196"),

	LinkForeground: lipgloss.Color("75"),

	CodeStyle: "monokai",
}
