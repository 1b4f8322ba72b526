// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/talia-ai/webchat/chat"
	"github.com/talia-ai/webchat/lib/tui"
)

// Engine is the part of *chat.Engine the model drives.
type Engine interface {
	Submit(text string) bool
	SetVisible(visible bool)
	SessionID() string
	Snapshot() chat.SessionSnapshot
}

// Layout rows outside the log viewport.
const (
	headerHeight = 1
	inputHeight  = 3
	footerHeight = 1
	// scrollbarWidth is the column right of the log.
	scrollbarWidth = 1
	// wheelLines is how far one mouse wheel notch scrolls.
	wheelLines = 3
)

// viewChangedMsg reports that the engine mutated the View.
type viewChangedMsg struct{}

// Model is the bubbletea model of the chat client: the log viewport,
// an input box, a header with the session state, and a footer that
// alternates between key help and the latest log record.
type Model struct {
	engine Engine
	view   *View
	theme  tui.Theme
	keys   KeyMap

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	status         string
	statusLevel    slog.Level
	statusSequence int
}

// NewModel creates the model. The engine must render into view.
func NewModel(engine Engine, view *View, theme tui.Theme) Model {
	input := textarea.New()
	input.Placeholder = "Escribe tu mensaje…"
	input.ShowLineNumbers = false
	input.Prompt = "┃ "
	input.CharLimit = 4000
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	return Model{
		engine:   engine,
		view:     view,
		theme:    theme,
		keys:     DefaultKeyMap,
		viewport: viewport.New(80, 20),
		input:    input,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Accent)),
		),
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, model.spinner.Tick, listenForChanges(model.view.Changes()))
}

// listenForChanges blocks until the view changes, then delivers a
// viewChangedMsg. The model re-arms it after every delivery.
func listenForChanges(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return viewChangedMsg{}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.layout()
		return model, nil

	case viewChangedMsg:
		model.refresh()
		return model, listenForChanges(model.view.Changes())

	case spinner.TickMsg:
		var command tea.Cmd
		model.spinner, command = model.spinner.Update(message)
		if model.view.Typing() {
			model.refresh()
		}
		return model, command

	case tea.FocusMsg:
		model.engine.SetVisible(true)
		return model, nil

	case tea.BlurMsg:
		model.engine.SetVisible(false)
		return model, nil

	case logRecordMsg:
		model.status = message.Summary
		model.statusLevel = message.Level
		model.statusSequence++
		sequence := model.statusSequence
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{sequence: sequence}
		})

	case logRecordFadeMsg:
		if message.sequence == model.statusSequence {
			model.status = ""
		}
		return model, nil

	case tea.MouseMsg:
		if message.Action == tea.MouseActionPress {
			switch message.Button {
			case tea.MouseButtonWheelUp:
				model.view.ScrollBy(-wheelLines)
			case tea.MouseButtonWheelDown:
				model.view.ScrollBy(wheelLines)
			}
		}
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Send):
		if model.engine.Submit(model.input.Value()) {
			model.input.Reset()
		}
		return model, nil

	case key.Matches(message, model.keys.NewLine):
		model.input.InsertString("\n")
		return model, nil

	case key.Matches(message, model.keys.LineUp):
		model.view.ScrollBy(-1)
		return model, nil

	case key.Matches(message, model.keys.LineDown):
		model.view.ScrollBy(1)
		return model, nil

	case key.Matches(message, model.keys.PageUp):
		model.view.ScrollBy(-max(model.viewport.Height-1, 1))
		return model, nil

	case key.Matches(message, model.keys.PageDown):
		model.view.ScrollBy(max(model.viewport.Height-1, 1))
		return model, nil

	case key.Matches(message, model.keys.Bottom):
		model.view.ScrollToBottom()
		return model, nil
	}

	var command tea.Cmd
	model.input, command = model.input.Update(message)
	return model, command
}

// layout sizes the panes from the terminal size.
func (model *Model) layout() {
	logHeight := max(model.height-headerHeight-inputHeight-footerHeight, 1)
	logWidth := max(model.width-scrollbarWidth, 20)
	model.viewport.Width = logWidth
	model.viewport.Height = logHeight
	model.input.SetWidth(model.width)
	model.view.SetSize(logWidth, logHeight)
	model.refresh()
}

// refresh copies the View into the viewport at the View's offset.
func (model *Model) refresh() {
	lines, top := model.view.Render(model.spinner.View())
	model.viewport.SetContent(strings.Join(lines, "\n"))
	model.viewport.SetYOffset(top)
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return ""
	}
	metrics := model.view.ScrollMetrics()
	scrollbar := tui.RenderScrollbar(model.theme, model.viewport.Height,
		metrics.ScrollHeight, metrics.ViewportHeight, metrics.Top,
		metrics.DistanceToBottom() > 0)
	body := lipgloss.JoinHorizontal(lipgloss.Top, model.viewport.View(), scrollbar)

	return lipgloss.JoinVertical(lipgloss.Left,
		model.renderHeader(),
		body,
		model.input.View(),
		model.renderFooter(),
	)
}

func (model Model) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).Render("Tal-IA")
	parts := []string{title}
	snapshot := model.engine.Snapshot()
	if snapshot.ManualMode {
		parts = append(parts, lipgloss.NewStyle().Foreground(model.theme.HumanForeground).Render("atención humana"))
	}
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	parts = append(parts, faint.Render(model.engine.SessionID()))
	return lipgloss.NewStyle().MaxWidth(model.width).Render(strings.Join(parts, faint.Render(" · ")))
}

func (model Model) renderFooter() string {
	style := lipgloss.NewStyle().MaxWidth(model.width)
	if model.status != "" {
		color := model.theme.WarningText
		if model.statusLevel >= slog.LevelError {
			color = model.theme.ErrorText
		}
		return style.Foreground(color).Render(model.status)
	}
	var help []string
	for _, binding := range model.keys.shortHelp() {
		if !binding.Enabled() || binding.Help().Key == "" {
			continue
		}
		help = append(help, binding.Help().Key+" "+binding.Help().Desc)
	}
	return style.Foreground(model.theme.HelpText).Render(strings.Join(help, " · "))
}
