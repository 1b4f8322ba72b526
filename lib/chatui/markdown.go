// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/talia-ai/webchat/lib/tui"
)

// wrapBreakpoints are the characters ansi.Wrap may break after.
const wrapBreakpoints = " ,.;-+|"

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// renderMarkdown renders assistant text as styled terminal lines
// wrapped to width. Soft line breaks reflow; fenced code keeps its
// lines and is highlighted with chroma.
func renderMarkdown(input string, theme tui.Theme, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := parser().Parser().Parse(text.NewReader(source))

	// Always ANSI256: the output only ever goes to the TUI, and
	// auto-detection yields plain text when stderr is not a terminal.
	lipRenderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	lipRenderer.SetColorProfile(termenv.ANSI256)

	writer := &markdownWriter{
		source:   source,
		theme:    theme,
		width:    max(width, 10),
		renderer: lipRenderer,
	}
	ast.Walk(document, writer.walk)
	return strings.TrimRight(writer.output.String(), "\n")
}

// markdownWriter accumulates inline text per block and wraps it when
// the block closes.
type markdownWriter struct {
	source   []byte
	theme    tui.Theme
	width    int
	renderer *lipgloss.Renderer

	output strings.Builder
	inline strings.Builder

	// prefix is prepended to every emitted line; bullet replaces it
	// on the next line only.
	prefix string
	bullet string
	lists  []listLevel

	bold, italic, strike int
	trailingNewlines     int
}

type listLevel struct {
	ordered bool
	next    int
	tight   bool
	indent  string
}

func (w *markdownWriter) style() lipgloss.Style {
	return w.renderer.NewStyle()
}

func (w *markdownWriter) write(s string) {
	if s == "" {
		return
	}
	w.output.WriteString(s)
	trimmed := strings.TrimRight(s, "\n")
	if trimmed == "" {
		w.trailingNewlines += len(s)
	} else {
		w.trailingNewlines = len(s) - len(trimmed)
	}
}

func (w *markdownWriter) newline() {
	if w.trailingNewlines < 1 {
		w.write("\n")
	}
}

func (w *markdownWriter) blankLine() {
	if w.output.Len() == 0 {
		return
	}
	for w.trailingNewlines < 2 {
		w.write("\n")
	}
}

func (w *markdownWriter) tight() bool {
	return len(w.lists) > 0 && w.lists[len(w.lists)-1].tight
}

// emitLines writes content line by line with the current prefixes.
func (w *markdownWriter) emitLines(content string) {
	for index, line := range strings.Split(content, "\n") {
		if index == 0 && w.bullet != "" {
			w.write(w.bullet)
			w.bullet = ""
		} else {
			w.write(w.prefix)
		}
		w.write(line)
		w.write("\n")
	}
}

func (w *markdownWriter) flushParagraph() {
	content := w.inline.String()
	w.inline.Reset()
	if content == "" {
		return
	}
	available := max(w.width-ansi.StringWidth(w.prefix), 10)
	w.emitLines(ansi.Wrap(content, available, wrapBreakpoints))
	if !w.tight() {
		w.blankLine()
	}
}

func (w *markdownWriter) styled(content string) string {
	style := w.style().Foreground(w.theme.NormalText)
	if w.bold > 0 {
		style = style.Bold(true)
	}
	if w.italic > 0 {
		style = style.Italic(true)
	}
	if w.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

func (w *markdownWriter) segments(lines *text.Segments) string {
	var builder strings.Builder
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		builder.Write(segment.Value(w.source))
	}
	return builder.String()
}

func (w *markdownWriter) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			w.inline.Reset()
		} else {
			w.flushParagraph()
		}

	case *ast.Heading:
		if entering {
			w.inline.Reset()
			return ast.WalkContinue, nil
		}
		content := ansi.Strip(w.inline.String())
		w.inline.Reset()
		if content != "" {
			heading := w.style().Bold(true).Foreground(w.theme.HeaderForeground).Render(content)
			w.blankLine()
			w.emitLines(ansi.Wrap(heading, w.width, wrapBreakpoints))
			w.blankLine()
		}

	case *ast.FencedCodeBlock:
		if entering {
			w.codeBlock(w.segments(node.Lines()), string(node.Language(w.source)))
			return ast.WalkSkipChildren, nil
		}

	case *ast.CodeBlock:
		if entering {
			w.codeBlock(w.segments(node.Lines()), "")
			return ast.WalkSkipChildren, nil
		}

	case *ast.Blockquote:
		if entering {
			w.prefix += "│ "
		} else {
			w.prefix = strings.TrimSuffix(w.prefix, "│ ")
			w.blankLine()
		}

	case *ast.List:
		if entering {
			w.lists = append(w.lists, listLevel{ordered: node.IsOrdered(), next: node.Start, tight: node.IsTight})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			if !w.tight() {
				w.blankLine()
			}
		}

	case *ast.ListItem:
		if len(w.lists) == 0 {
			break
		}
		level := &w.lists[len(w.lists)-1]
		if entering {
			marker := "• "
			if level.ordered {
				marker = fmt.Sprintf("%d. ", level.next)
				level.next++
			}
			w.bullet = w.prefix + marker
			level.indent = strings.Repeat(" ", ansi.StringWidth(marker))
			w.prefix += level.indent
		} else {
			w.prefix = strings.TrimSuffix(w.prefix, level.indent)
			w.newline()
		}

	case *ast.ThematicBreak:
		if entering {
			w.blankLine()
			w.emitLines(w.style().Foreground(w.theme.BorderColor).Render(strings.Repeat("─", w.width)))
			w.blankLine()
		}

	case *ast.HTMLBlock:
		return ast.WalkSkipChildren, nil

	case *ast.Text:
		if entering {
			w.inline.WriteString(w.styled(string(node.Segment.Value(w.source))))
			if node.HardLineBreak() {
				w.inline.WriteString("\n")
			} else if node.SoftLineBreak() {
				w.inline.WriteString(" ")
			}
		}

	case *ast.String:
		if entering {
			w.inline.WriteString(w.styled(string(node.Value)))
		}

	case *ast.Emphasis:
		delta := -1
		if entering {
			delta = 1
		}
		if node.Level >= 2 {
			w.bold += delta
		} else {
			w.italic += delta
		}

	case *extast.Strikethrough:
		if entering {
			w.strike++
		} else {
			w.strike--
		}

	case *ast.CodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if textNode, ok := child.(*ast.Text); ok {
					code.Write(textNode.Segment.Value(w.source))
				}
			}
			w.inline.WriteString(w.style().Foreground(w.theme.FaintText).Render(code.String()))
			return ast.WalkSkipChildren, nil
		}

	case *ast.Link:
		if entering {
			var label strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if textNode, ok := child.(*ast.Text); ok {
					label.Write(textNode.Segment.Value(w.source))
				}
			}
			link := w.style().Foreground(w.theme.LinkForeground).Underline(true)
			w.inline.WriteString(link.Render(label.String()))
			if destination := string(node.Destination); destination != "" && destination != label.String() {
				w.inline.WriteString(" " + w.style().Foreground(w.theme.FaintText).Render("("+destination+")"))
			}
			return ast.WalkSkipChildren, nil
		}

	case *ast.AutoLink:
		if entering {
			w.inline.WriteString(w.style().Foreground(w.theme.LinkForeground).Underline(true).Render(string(node.URL(w.source))))
		}

	case *ast.Image:
		if entering {
			w.inline.WriteString(w.style().Foreground(w.theme.FaintText).Render("[imagen: " + string(node.Destination) + "]"))
			return ast.WalkSkipChildren, nil
		}

	case *ast.RawHTML:
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// codeBlock emits code unwrapped, highlighted when the language is
// known to chroma and faint otherwise.
func (w *markdownWriter) codeBlock(code, language string) {
	code = strings.TrimRight(code, "\n")
	rendered := w.style().Foreground(w.theme.FaintText).Render(code)
	if language != "" {
		var highlighted strings.Builder
		if err := quick.Highlight(&highlighted, code, language, "terminal256", w.theme.CodeStyle); err == nil {
			rendered = trimHighlighted(highlighted.String())
		}
	}
	w.blankLine()
	w.emitLines(rendered)
	w.blankLine()
}

// trimHighlighted drops the trailing lines chroma emits that hold only
// escape sequences, closing the last kept line with a style reset.
func trimHighlighted(highlighted string) string {
	lines := strings.Split(highlighted, "\n")
	for len(lines) > 1 && strings.TrimSpace(ansi.Strip(lines[len(lines)-1])) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\x1b[0m"
}
