// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the interactive terminal view of a chat session.
//
// [Model] is a bubbletea model: a scrolling transcript (bubbles
// viewport), a one-line composer (bubbles textinput), and a header
// naming the room. Inbound messages arrive through a tea.Cmd that
// blocks on [Conversation.Receive], so the session's own goroutine is
// never touched by the UI loop.
//
// Lines starting with "/" are commands:
//
//	/sync      replay the local history to the peer
//	/destroy   tell the peer the room is gone and leave
//	/quit      leave without destroying the room
package chatui
