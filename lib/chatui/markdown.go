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

	"github.com/bureau-foundation/ghost/lib/tui"
)

// wrapBreakpoints are the characters ansi.Wrap may break after in
// addition to spaces.
const wrapBreakpoints = " ,.;-+|"

var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once

	styleRenderer     *lipgloss.Renderer
	styleRendererOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))
	})
	return markdownParser
}

// getStyleRenderer returns a lipgloss renderer pinned to ANSI256. Chat
// text is only rendered for the bubbletea view, and auto-detection
// would strip color when stderr is not a terminal.
func getStyleRenderer() *lipgloss.Renderer {
	styleRendererOnce.Do(func() {
		styleRenderer = lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
		styleRenderer.SetColorProfile(termenv.ANSI256)
	})
	return styleRenderer
}

// renderMarkdown renders one chat line's text for a column of width
// cells. Chat lines are dense: blocks are separated by a single line
// break, not a blank line. Soft breaks reflow; fenced code keeps its
// lines and is highlighted when a language is named.
func renderMarkdown(input string, theme tui.Theme, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	renderer := &markdownRenderer{
		source: source,
		theme:  theme,
		width:  width,
		styles: getStyleRenderer(),
	}
	ast.Walk(document, renderer.walk)
	return strings.TrimRight(renderer.output.String(), "\n")
}

// markdownRenderer walks a goldmark AST. Inline content accumulates in
// inline and is wrapped as a unit when its block closes.
type markdownRenderer struct {
	source []byte
	theme  tui.Theme
	width  int
	styles *lipgloss.Renderer

	output strings.Builder
	inline strings.Builder

	// prefix is prepended to every emitted line; pendingBullet
	// replaces it for the first line of a list item.
	prefix        string
	prefixWidth   int
	prefixStack   []int
	pendingBullet string

	boldCount          int
	italicCount        int
	strikethroughCount int

	// run holds adjacent text sharing runStyle, styled as one unit
	// when the style changes or other inline content arrives.
	run      strings.Builder
	runStyle textStyle

	listStack []listState
}

type textStyle struct {
	bold, italic, strikethrough bool
}

type listState struct {
	ordered bool
	counter int
}

func (renderer *markdownRenderer) newStyle() lipgloss.Style {
	return renderer.styles.NewStyle()
}

// contentWidth is the width left after nesting prefixes, never below
// ten cells.
func (renderer *markdownRenderer) contentWidth() int {
	return max(renderer.width-renderer.prefixWidth, 10)
}

func (renderer *markdownRenderer) pushPrefix(text string) {
	width := ansi.StringWidth(text)
	renderer.prefixStack = append(renderer.prefixStack, len(text))
	renderer.prefix += text
	renderer.prefixWidth += width
}

func (renderer *markdownRenderer) popPrefix() {
	if len(renderer.prefixStack) == 0 {
		return
	}
	size := renderer.prefixStack[len(renderer.prefixStack)-1]
	renderer.prefixStack = renderer.prefixStack[:len(renderer.prefixStack)-1]
	removed := renderer.prefix[len(renderer.prefix)-size:]
	renderer.prefix = renderer.prefix[:len(renderer.prefix)-size]
	renderer.prefixWidth -= ansi.StringWidth(removed)
}

func (renderer *markdownRenderer) linePrefix() string {
	if renderer.pendingBullet != "" {
		bullet := renderer.pendingBullet
		renderer.pendingBullet = ""
		return bullet
	}
	return renderer.prefix
}

// emitLines writes content line by line with the current prefixes.
func (renderer *markdownRenderer) emitLines(content string) {
	for _, line := range strings.Split(content, "\n") {
		renderer.output.WriteString(renderer.linePrefix())
		renderer.output.WriteString(line)
		renderer.output.WriteByte('\n')
	}
}

func (renderer *markdownRenderer) flushInline() {
	renderer.flushRun()
	content := renderer.inline.String()
	renderer.inline.Reset()
	if content == "" {
		return
	}
	renderer.emitLines(ansi.Wrap(content, renderer.contentWidth(), wrapBreakpoints))
}

func (renderer *markdownRenderer) currentStyle() textStyle {
	return textStyle{
		bold:          renderer.boldCount > 0,
		italic:        renderer.italicCount > 0,
		strikethrough: renderer.strikethroughCount > 0,
	}
}

// appendText adds plain text to the current run.
func (renderer *markdownRenderer) appendText(content string) {
	if style := renderer.currentStyle(); style != renderer.runStyle {
		renderer.flushRun()
		renderer.runStyle = style
	}
	renderer.run.WriteString(content)
}

// flushRun styles the pending run into inline.
func (renderer *markdownRenderer) flushRun() {
	if renderer.run.Len() == 0 {
		return
	}
	style := renderer.newStyle().Foreground(renderer.theme.NormalText).
		Bold(renderer.runStyle.bold).
		Italic(renderer.runStyle.italic).
		Strikethrough(renderer.runStyle.strikethrough)
	renderer.inline.WriteString(style.Render(renderer.run.String()))
	renderer.run.Reset()
}

// writeInline adds already styled content after the pending run.
func (renderer *markdownRenderer) writeInline(content string) {
	renderer.flushRun()
	renderer.inline.WriteString(content)
}

func (renderer *markdownRenderer) faint(content string) string {
	return renderer.newStyle().Foreground(renderer.theme.FaintText).Render(content)
}

// highlightCode highlights code with chroma. Unknown languages and
// unlabeled blocks render faint.
func (renderer *markdownRenderer) highlightCode(code, language string) string {
	if language == "" {
		return renderer.faint(code)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err != nil {
		return renderer.faint(code)
	}
	return buffer.String()
}

func (renderer *markdownRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock, ast.KindHeading:
		if entering {
			renderer.inline.Reset()
			renderer.run.Reset()
			if node.Kind() == ast.KindHeading {
				renderer.boldCount++
			}
		} else {
			if node.Kind() == ast.KindHeading {
				renderer.boldCount--
			}
			renderer.flushInline()
		}

	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			renderer.renderCode(node)
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			renderer.pushPrefix(renderer.newStyle().Foreground(renderer.theme.BorderColor).Render("│") + " ")
		} else {
			renderer.popPrefix()
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			renderer.listStack = append(renderer.listStack, listState{ordered: list.IsOrdered(), counter: list.Start})
		} else if len(renderer.listStack) > 0 {
			renderer.listStack = renderer.listStack[:len(renderer.listStack)-1]
		}

	case ast.KindListItem:
		if entering {
			renderer.enterListItem()
		} else {
			renderer.popPrefix()
		}

	case ast.KindThematicBreak:
		if entering {
			rule := strings.Repeat("─", renderer.contentWidth())
			renderer.emitLines(renderer.newStyle().Foreground(renderer.theme.BorderColor).Render(rule))
		}

	case ast.KindHTMLBlock:
		if entering {
			renderer.emitLines(renderer.faint(strings.TrimRight(renderer.segmentsText(node.Lines()), "\n")))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			renderer.appendText(string(textNode.Segment.Value(renderer.source)))
			switch {
			case textNode.HardLineBreak():
				renderer.writeInline("\n")
			case textNode.SoftLineBreak():
				renderer.appendText(" ")
			}
		}

	case ast.KindString:
		if entering {
			renderer.appendText(string(node.(*ast.String).Value))
		}

	case ast.KindEmphasis:
		emphasis := node.(*ast.Emphasis)
		counter := &renderer.italicCount
		if emphasis.Level >= 2 {
			counter = &renderer.boldCount
		}
		if entering {
			*counter++
		} else {
			*counter--
		}

	case ast.KindCodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				switch inner := child.(type) {
				case *ast.Text:
					code.Write(inner.Segment.Value(renderer.source))
				case *ast.String:
					code.Write(inner.Value)
				}
			}
			renderer.writeInline(renderer.newStyle().Foreground(renderer.theme.Accent).Render(code.String()))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if !entering {
			link := node.(*ast.Link)
			renderer.writeInline(" " + renderer.faint("("+string(link.Destination)+")"))
		}

	case ast.KindAutoLink:
		if entering {
			url := string(node.(*ast.AutoLink).URL(renderer.source))
			renderer.writeInline(renderer.newStyle().Foreground(renderer.theme.Accent).Underline(true).Render(url))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindImage:
		if entering {
			image := node.(*ast.Image)
			renderer.writeInline(renderer.faint("[image " + string(image.Destination) + "]"))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindRawHTML:
		if entering {
			raw := node.(*ast.RawHTML)
			renderer.writeInline(renderer.faint(renderer.segmentsText(raw.Segments)))
			return ast.WalkSkipChildren, nil
		}

	case extast.KindStrikethrough:
		if entering {
			renderer.strikethroughCount++
		} else {
			renderer.strikethroughCount--
		}
	}
	return ast.WalkContinue, nil
}

func (renderer *markdownRenderer) renderCode(node ast.Node) {
	code := renderer.segmentsText(node.Lines())
	var language string
	if fenced, ok := node.(*ast.FencedCodeBlock); ok {
		language = string(fenced.Language(renderer.source))
	}
	lines := strings.Split(renderer.highlightCode(code, language), "\n")
	// Highlighters may leave a reset sequence on a line of its own.
	for len(lines) > 1 && strings.TrimSpace(ansi.Strip(lines[len(lines)-1])) == "" {
		lines[len(lines)-2] += lines[len(lines)-1]
		lines = lines[:len(lines)-1]
	}
	for _, line := range lines {
		renderer.output.WriteString(renderer.linePrefix())
		renderer.output.WriteString(ansi.Truncate(line, renderer.contentWidth(), "…"))
		renderer.output.WriteByte('\n')
	}
}

func (renderer *markdownRenderer) enterListItem() {
	if len(renderer.listStack) == 0 {
		return
	}
	top := &renderer.listStack[len(renderer.listStack)-1]
	bullet := "• "
	if top.ordered {
		bullet = fmt.Sprintf("%d. ", top.counter)
		top.counter++
	}
	renderer.pendingBullet = renderer.prefix + bullet
	renderer.pushPrefix(strings.Repeat(" ", ansi.StringWidth(bullet)))
}

func (renderer *markdownRenderer) segmentsText(segments *text.Segments) string {
	var builder strings.Builder
	for index := 0; index < segments.Len(); index++ {
		segment := segments.At(index)
		builder.Write(segment.Value(renderer.source))
	}
	return builder.String()
}
