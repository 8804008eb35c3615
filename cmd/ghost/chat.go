// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bureau-foundation/ghost/lib/chat"
	"github.com/bureau-foundation/ghost/lib/chatui"
	"github.com/bureau-foundation/ghost/session"
)

// chatFrontEnd runs the interactive view on a terminal and the line
// loop everywhere else.
func chatFrontEnd(ctx context.Context, out *terminal, conversation chatui.Conversation, plain bool) error {
	if out.interactive && !plain {
		return chatui.Run(ctx, conversation)
	}
	return lineChat(ctx, conversation, out.in, out.out)
}

// lineChat prints inbound messages as lines and sends each input line.
// It returns when input ends, /quit or /destroy is entered, the session
// closes, or ctx is done.
func lineChat(ctx context.Context, conversation chatui.Conversation, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeMu sync.Mutex
	printLine := func(format string, args ...any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		fmt.Fprintf(out, format+"\n", args...)
	}

	receiveDone := make(chan error, 1)
	go func() {
		for {
			message, err := conversation.Receive(ctx, 0)
			if err != nil {
				receiveDone <- err
				cancel()
				return
			}
			if line := formatMessage(message, conversation.SelfID()); line != "" {
				printLine("%s", line)
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	printLine("* chatting in %s as %s (/sync, /destroy, /quit)", conversation.RoomID(), conversation.Nick())
	for {
		select {
		case <-ctx.Done():
			return receiveResult(receiveDone)
		case text, ok := <-lines:
			if !ok {
				return nil
			}
			text = strings.TrimSpace(text)
			switch text {
			case "":
				continue
			case "/quit":
				return nil
			case "/sync":
				if err := conversation.Sync(); err != nil {
					printLine("! sync failed: %v", err)
				}
				continue
			case "/destroy":
				return conversation.Destroy()
			}
			if err := conversation.Send(text); err != nil {
				if errors.Is(err, session.ErrChannelClosed) {
					printLine("! Not connected")
					return receiveResult(receiveDone)
				}
				printLine("! send failed: %v", err)
			}
		}
	}
}

// receiveResult waits for the receive goroutine and maps an ordinary
// end of session to nil.
func receiveResult(receiveDone <-chan error) error {
	err := <-receiveDone
	if errors.Is(err, session.ErrChannelClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// formatMessage renders a message for the line loop. Own chat lines
// were already typed by the user and render empty.
func formatMessage(message chat.Message, selfID string) string {
	switch message.Kind {
	case chat.KindChat:
		if message.From == selfID {
			return ""
		}
		return fmt.Sprintf("%s: %s", message.Nick, message.Text)
	case chat.KindSystem:
		return "* " + message.Text
	}
	return ""
}
