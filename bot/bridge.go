// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot connects a chat session to a language model: every chat
// line from another participant becomes a user turn, and the model's
// reply is sent back into the room.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/ghost/lib/chat"
	"github.com/bureau-foundation/ghost/lib/llm"
	"github.com/bureau-foundation/ghost/session"
)

// DefaultSystemPrompt is used when Config leaves SystemPrompt empty.
const DefaultSystemPrompt = "You are a helpful AI assistant. Keep responses brief (1-2 sentences)."

// DefaultHistory is the number of conversation messages kept when
// Config leaves History zero.
const DefaultHistory = 20

// Conversation is the part of a session the bridge drives.
// *session.Session implements it.
type Conversation interface {
	Receive(ctx context.Context, timeout time.Duration) (chat.Message, error)
	Send(text string) error
	SelfID() string
}

// Config holds the parameters of a Bridge.
type Config struct {
	// Provider generates replies. Required.
	Provider llm.Provider

	// Model is passed through to the provider.
	Model string

	// SystemPrompt opens every request. Default: DefaultSystemPrompt.
	SystemPrompt string

	// History bounds the user/assistant messages sent with each
	// request. Default: DefaultHistory.
	History int

	// Timeout bounds one provider call. Zero means no bound beyond
	// the Run context.
	Timeout time.Duration

	// Logger receives bridge events. Message text is never logged.
	// Default: discard.
	Logger *slog.Logger
}

// Bridge relays chat lines to a Provider and replies with its output.
// A Bridge is driven by a single Run call.
type Bridge struct {
	conversation Conversation
	config       Config
	logger       *slog.Logger
	history      []llm.Message
}

// NewBridge creates a Bridge over conversation.
func NewBridge(conversation Conversation, config Config) (*Bridge, error) {
	if config.Provider == nil {
		return nil, errors.New("bot: provider is required")
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	if config.History <= 0 {
		config.History = DefaultHistory
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{
		conversation: conversation,
		config:       config,
		logger:       config.Logger,
	}, nil
}

// Run answers chat lines until ctx is done or the session closes. A
// closed session ends Run with a nil error.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("bridge running", "model", b.config.Model)
	for {
		message, err := b.conversation.Receive(ctx, 0)
		if errors.Is(err, session.ErrChannelClosed) {
			b.logger.Info("session closed, bridge stopping")
			return nil
		}
		if err != nil {
			return err
		}
		if message.Kind != chat.KindChat || message.From == b.conversation.SelfID() {
			continue
		}

		reply := b.Respond(ctx, message.Text)
		if err := b.conversation.Send(reply); err != nil {
			if errors.Is(err, session.ErrChannelClosed) {
				return nil
			}
			return fmt.Errorf("sending reply: %w", err)
		}
	}
}

// Respond records text as a user turn and returns the model's reply.
// A provider failure is returned as "[Error: ...]" text so the other
// participant sees it; the failed turn is not kept in the history.
func (b *Bridge) Respond(ctx context.Context, text string) string {
	b.history = append(b.history, llm.UserMessage(text))
	b.trim()

	if b.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	response, err := b.config.Provider.Complete(ctx, llm.Request{
		Model:    b.config.Model,
		System:   b.config.SystemPrompt,
		Messages: append([]llm.Message(nil), b.history...),
	})
	if err != nil {
		b.logger.Warn("provider request failed", "error", err, "duration", time.Since(start))
		b.history = b.history[:len(b.history)-1]
		return fmt.Sprintf("[Error: %v]", err)
	}

	b.history = append(b.history, llm.AssistantMessage(response.Content))
	b.trim()
	b.logger.Info("reply generated",
		"duration", time.Since(start),
		"reply_bytes", len(response.Content),
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
	)
	return response.Content
}

// History returns a copy of the kept conversation.
func (b *Bridge) History() []llm.Message {
	return append([]llm.Message(nil), b.history...)
}

// trim drops the oldest messages beyond the limit. The kept history
// always starts with a user turn.
func (b *Bridge) trim() {
	if excess := len(b.history) - b.config.History; excess > 0 {
		b.history = append([]llm.Message(nil), b.history[excess:]...)
	}
	for len(b.history) > 0 && b.history[0].Role != llm.RoleUser {
		b.history = b.history[1:]
	}
}
