// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the chat client. Keys not bound
// here go to the input box.
type KeyMap struct {
	Send    key.Binding
	NewLine key.Binding

	// Log scrolling.
	LineUp   key.Binding
	LineDown key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Bottom   key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "enviar"),
	),
	NewLine: key.NewBinding(
		key.WithKeys("alt+enter", "ctrl+j"),
		key.WithHelp("alt+enter", "nueva línea"),
	),
	LineUp: key.NewBinding(
		key.WithKeys("ctrl+up"),
		key.WithHelp("ctrl+↑", "subir"),
	),
	LineDown: key.NewBinding(
		key.WithKeys("ctrl+down"),
		key.WithHelp("ctrl+↓", "bajar"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup/pgdn", "desplazar"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("ctrl+end"),
		key.WithHelp("ctrl+end", "al final"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "salir"),
	),
}

// shortHelp lists the bindings shown in the help line.
func (keys KeyMap) shortHelp() []key.Binding {
	return []key.Binding{keys.Send, keys.NewLine, keys.PageUp, keys.Bottom, keys.Quit}
}
