// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/ghost/lib/chat"
	"github.com/bureau-foundation/ghost/lib/tui"
	"github.com/bureau-foundation/ghost/session"
)

// Conversation is the part of a session the view drives.
// *session.Session implements it.
type Conversation interface {
	Receive(ctx context.Context, timeout time.Duration) (chat.Message, error)
	Send(text string) error
	Sync() error
	Destroy() error
	Nick() string
	SelfID() string
	RoomID() string
}

// maxTranscript bounds the lines kept in the view.
const maxTranscript = 1000

// inboundMsg carries one received message into Update.
type inboundMsg struct{ message chat.Message }

// closedMsg reports that Receive ended.
type closedMsg struct{ err error }

// line is one rendered transcript entry.
type line struct {
	at   time.Time
	nick string
	text string
	own  bool
	kind string
}

const (
	lineChat   = "chat"
	lineSystem = "system"
	lineError  = "error"
)

// Model is the bubbletea model of the chat view.
type Model struct {
	conversation Conversation
	ctx          context.Context
	theme        tui.Theme
	keys         KeyMap
	now          func() time.Time

	input    textinput.Model
	viewport viewport.Model

	transcript []line
	width      int
	height     int
	ready      bool
	closed     bool
	quitting   bool
}

// New creates a chat view over conversation. Receive calls use ctx.
func New(ctx context.Context, conversation Conversation) Model {
	input := textinput.New()
	input.Placeholder = "Type a message, /quit to leave"
	input.Prompt = "> "
	input.CharLimit = 4096
	input.Focus()

	return Model{
		conversation: conversation,
		ctx:          ctx,
		theme:        tui.DefaultTheme,
		keys:         DefaultKeyMap,
		now:          time.Now,
		input:        input,
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, model.listen())
}

// listen returns a tea.Cmd that blocks until the next inbound message.
func (model Model) listen() tea.Cmd {
	conversation, ctx := model.conversation, model.ctx
	return func() tea.Msg {
		message, err := conversation.Receive(ctx, 0)
		if err != nil {
			return closedMsg{err: err}
		}
		return inboundMsg{message: message}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width, model.height = message.Width, message.Height
		model.layout()
		return model, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(message, model.keys.Quit):
			model.quitting = true
			return model, tea.Quit
		case key.Matches(message, model.keys.Send):
			return model.submit()
		case key.Matches(message, model.keys.PageUp):
			model.viewport.HalfViewUp()
			return model, nil
		case key.Matches(message, model.keys.PageDown):
			model.viewport.HalfViewDown()
			return model, nil
		}

	case inboundMsg:
		model.appendMessage(message.message)
		return model, model.listen()

	case closedMsg:
		model.closed = true
		text := "Connection closed"
		if message.err != nil && !isClosed(message.err) {
			text = fmt.Sprintf("Connection closed: %v", message.err)
		}
		model.appendLine(line{at: model.now(), text: text, kind: lineSystem})
		return model, nil
	}

	var cmd tea.Cmd
	model.input, cmd = model.input.Update(message)
	return model, cmd
}

// submit handles the composer's contents on Enter.
func (model Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(model.input.Value())
	model.input.Reset()
	if text == "" {
		return model, nil
	}

	switch text {
	case "/quit":
		model.quitting = true
		return model, tea.Quit
	case "/sync":
		if err := model.conversation.Sync(); err != nil {
			model.appendError(err)
		} else {
			model.appendLine(line{at: model.now(), text: "History sent", kind: lineSystem})
		}
		return model, nil
	case "/destroy":
		if err := model.conversation.Destroy(); err != nil {
			model.appendError(err)
		}
		model.quitting = true
		return model, tea.Quit
	}

	if model.closed {
		model.appendLine(line{at: model.now(), text: "Not connected", kind: lineError})
		return model, nil
	}
	if err := model.conversation.Send(text); err != nil {
		model.appendError(err)
		return model, nil
	}
	model.appendLine(line{at: model.now(), nick: model.conversation.Nick(), text: text, own: true, kind: lineChat})
	return model, nil
}

func (model *Model) appendMessage(message chat.Message) {
	switch message.Kind {
	case chat.KindChat:
		model.appendLine(line{
			at:   message.Time(),
			nick: message.Nick,
			text: message.Text,
			own:  message.From == model.conversation.SelfID(),
			kind: lineChat,
		})
	case chat.KindSystem:
		model.appendLine(line{at: message.Time(), text: message.Text, kind: lineSystem})
	}
}

func (model *Model) appendError(err error) {
	model.appendLine(line{at: model.now(), text: err.Error(), kind: lineError})
}

func (model *Model) appendLine(entry line) {
	model.transcript = append(model.transcript, entry)
	if excess := len(model.transcript) - maxTranscript; excess > 0 {
		model.transcript = append([]line(nil), model.transcript[excess:]...)
	}
	if model.ready {
		atBottom := model.viewport.AtBottom()
		model.viewport.SetContent(model.renderTranscript())
		if atBottom {
			model.viewport.GotoBottom()
		}
	}
}

// layout sizes the viewport and composer for the window.
func (model *Model) layout() {
	// Header, composer, and help take one row each.
	bodyHeight := max(model.height-3, 1)
	bodyWidth := max(model.width-1, 1)
	if !model.ready {
		model.viewport = viewport.New(bodyWidth, bodyHeight)
		model.ready = true
	} else {
		model.viewport.Width = bodyWidth
		model.viewport.Height = bodyHeight
	}
	model.input.Width = max(model.width-len(model.input.Prompt)-1, 1)
	model.viewport.SetContent(model.renderTranscript())
	model.viewport.GotoBottom()
}

// View implements tea.Model.
func (model Model) View() string {
	if model.quitting {
		return ""
	}
	if !model.ready {
		return "Connecting..."
	}

	header := lipgloss.NewStyle().
		Foreground(model.theme.HeaderForeground).
		Background(model.theme.HeaderBackground).
		Width(model.width).
		Render(ansi.Truncate(model.headerText(), model.width, "…"))

	scrollbar := tui.RenderScrollbar(model.theme, model.viewport.Height,
		model.viewport.TotalLineCount(), model.viewport.Height, model.viewport.YOffset)
	body := lipgloss.JoinHorizontal(lipgloss.Top, model.viewport.View(), scrollbar)

	help := lipgloss.NewStyle().Foreground(model.theme.HelpText).
		Render("enter send · /sync replay history · /destroy end room · esc quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, model.input.View(), help)
}

func (model Model) headerText() string {
	status := "connected"
	if model.closed {
		status = "disconnected"
	}
	return fmt.Sprintf(" ghost · room %s · %s as %s", model.conversation.RoomID(), status, model.conversation.Nick())
}

func (model Model) renderTranscript() string {
	timeStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	systemStyle := lipgloss.NewStyle().Foreground(model.theme.SystemText).Italic(true)
	errorStyle := lipgloss.NewStyle().Foreground(model.theme.ErrorText)
	width := max(model.viewport.Width, 1)

	var builder strings.Builder
	for index, entry := range model.transcript {
		if index > 0 {
			builder.WriteByte('\n')
		}
		stamp := timeStyle.Render(entry.at.Format("15:04"))
		switch entry.kind {
		case lineSystem:
			builder.WriteString(lipgloss.NewStyle().Width(width).Render(stamp + " " + systemStyle.Render("* "+entry.text)))
		case lineError:
			builder.WriteString(lipgloss.NewStyle().Width(width).Render(stamp + " " + errorStyle.Render("! "+entry.text)))
		default:
			nickColor := model.theme.NickColor(entry.nick)
			if entry.own {
				nickColor = model.theme.OwnNick
			}
			nick := lipgloss.NewStyle().Foreground(nickColor).Bold(true).Render(entry.nick)
			builder.WriteString(hangingIndent(stamp+" "+nick+" ", entry.text, model.theme, width))
		}
	}
	return builder.String()
}

// hangingIndent renders text as markdown beside prefix, indenting
// continuation lines to the end of the prefix.
func hangingIndent(prefix, text string, theme tui.Theme, width int) string {
	prefixWidth := ansi.StringWidth(prefix)
	body := renderMarkdown(text, theme, max(width-prefixWidth, 10))
	indent := strings.Repeat(" ", prefixWidth)
	lines := strings.Split(body, "\n")
	for index := range lines {
		if index == 0 {
			lines[index] = prefix + lines[index]
		} else {
			lines[index] = indent + lines[index]
		}
	}
	return strings.Join(lines, "\n")
}

// Transcript returns the plain text of the transcript, one entry per
// line, without styling.
func (model Model) Transcript() []string {
	lines := make([]string, 0, len(model.transcript))
	for _, entry := range model.transcript {
		switch entry.kind {
		case lineChat:
			lines = append(lines, entry.nick+": "+entry.text)
		case lineSystem:
			lines = append(lines, "* "+entry.text)
		default:
			lines = append(lines, "! "+entry.text)
		}
	}
	return lines
}

// isClosed reports whether err is an ordinary end of the session.
func isClosed(err error) bool {
	return errors.Is(err, session.ErrChannelClosed) || errors.Is(err, context.Canceled)
}

// Run starts the view on the terminal and returns when the user quits
// or the program fails. The conversation is not closed.
func Run(ctx context.Context, conversation Conversation) error {
	program := tea.NewProgram(New(ctx, conversation), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
