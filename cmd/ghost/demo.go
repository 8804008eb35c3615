// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/ghost/bot"
	"github.com/bureau-foundation/ghost/lib/chat"
	"github.com/bureau-foundation/ghost/lib/llm"
	"github.com/bureau-foundation/ghost/lib/roomcipher"
	"github.com/bureau-foundation/ghost/session"
	"github.com/bureau-foundation/ghost/transport"
)

// defaultDemoLines are sent when the demo is given no lines.
var defaultDemoLines = []string{
	"Hello! Can you hear me?",
	"What is WebRTC in one sentence?",
}

// demoParams wires the two participants of a demo.
type demoParams struct {
	hostPeer, botPeer transport.Peer
	provider          llm.Provider
	model             string
	systemPrompt      string
	suite             roomcipher.Suite
	connectTimeout    time.Duration
	replyTimeout      time.Duration
	lines             []string
	logger            *slog.Logger
}

// runDemo connects a host session to a bot session in process, sends
// each line from the host, and prints the exchange to out.
func runDemo(ctx context.Context, params demoParams, out io.Writer) error {
	alice := session.New(session.Config{Nick: "alice", Logger: params.logger, Suite: params.suite}, params.hostPeer)
	defer alice.Close()
	ghostBot := session.New(session.Config{Nick: "ghost-bot", Logger: params.logger, Suite: params.suite}, params.botPeer)
	defer ghostBot.Close()

	roomID, _, offer, err := alice.CreateRoom(ctx)
	if err != nil {
		return fmt.Errorf("creating room: %w", err)
	}
	if err := ghostBot.SetRoom(alice.Credential()); err != nil {
		return err
	}
	answer, err := ghostBot.AcceptOffer(ctx, offer)
	if err != nil {
		return fmt.Errorf("answering offer: %w", err)
	}
	if err := alice.AcceptAnswer(ctx, answer); err != nil {
		return fmt.Errorf("applying answer: %w", err)
	}
	for _, participant := range []*session.Session{alice, ghostBot} {
		if err := participant.WaitConnected(ctx, params.connectTimeout); err != nil {
			return fmt.Errorf("connecting %s: %w", participant.Nick(), err)
		}
	}
	fmt.Fprintf(out, "* room %s open (offer %d bytes, answer %d bytes)\n", roomID, len(offer), len(answer))

	bridge, err := bot.NewBridge(ghostBot, bot.Config{
		Provider:     params.provider,
		Model:        params.model,
		SystemPrompt: params.systemPrompt,
		Timeout:      params.replyTimeout,
		Logger:       params.logger,
	})
	if err != nil {
		return err
	}
	bridgeCtx, stopBridge := context.WithCancel(ctx)
	bridgeDone := make(chan error, 1)
	go func() { bridgeDone <- bridge.Run(bridgeCtx) }()
	defer func() {
		stopBridge()
		<-bridgeDone
	}()

	lines := params.lines
	if len(lines) == 0 {
		lines = defaultDemoLines
	}
	for _, text := range lines {
		if err := alice.Send(text); err != nil {
			return err
		}
		fmt.Fprintf(out, "alice: %s\n", text)
		reply, err := awaitReply(ctx, alice, params.replyTimeout)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", reply.Nick, reply.Text)
	}
	return nil
}

// awaitReply returns the next chat line from another participant. The
// wait is twice the provider timeout so a provider error still arrives
// as text.
func awaitReply(ctx context.Context, participant *session.Session, providerTimeout time.Duration) (chat.Message, error) {
	wait := 2 * providerTimeout
	for {
		message, err := participant.Receive(ctx, wait)
		if errors.Is(err, session.ErrReceiveTimeout) {
			return chat.Message{}, fmt.Errorf("no reply from the bot within %s", wait)
		}
		if err != nil {
			return chat.Message{}, err
		}
		if message.Kind == chat.KindChat && message.From != participant.SelfID() {
			return message, nil
		}
	}
}

// echoProvider answers without a model server.
type echoProvider struct{}

func (echoProvider) Complete(ctx context.Context, request llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var last string
	for index := len(request.Messages) - 1; index >= 0; index-- {
		if request.Messages[index].Role == llm.RoleUser {
			last = request.Messages[index].Content
			break
		}
	}
	return &llm.Response{
		Model:      "echo",
		Content:    "You said: " + last,
		StopReason: llm.StopReasonEndTurn,
	}, nil
}
