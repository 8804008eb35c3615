// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/ghost/lib/exchange"
	"github.com/bureau-foundation/ghost/lib/room"
	"github.com/bureau-foundation/ghost/session"
)

// hostHandshake creates a room, hands the offer to the user (or the
// relay), applies the answer, and waits for the channel.
func hostHandshake(ctx context.Context, env *environment, out *terminal, nick string) (*session.Session, error) {
	chatSession, err := env.newSession(nick)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			chatSession.Close()
		}
	}()

	roomID, roomKey, offerCode, err := chatSession.CreateRoom(ctx)
	if err != nil {
		return nil, err
	}
	credential := room.Credential(roomID + "." + roomKey)
	offer, err := exchange.ParseCode(offerCode)
	if err != nil {
		return nil, err
	}
	invite, err := room.Invite(credential, offer)
	if err != nil {
		return nil, err
	}

	out.printf("\nRoom credential (share privately):\n%s\n", credential)
	out.printf("\nOffer code:\n%s\n", offerCode)
	out.printf("\nOr give a single invite code to the joiner:\n%s\n\n", invite)

	if env.config.Relay.URL != "" {
		signaler, cleanup, err := env.dialSignaler(ctx, chatSession)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		out.printf("Waiting for an answer through %s ...\n", env.config.Relay.URL)
		if err := chatSession.CompleteOffer(ctx, signaler, offerCode); err != nil {
			return nil, err
		}
	} else {
		answer, err := out.prompt(ctx, "Paste the answer code (A:...): ")
		if err != nil {
			return nil, err
		}
		if err := chatSession.AcceptAnswer(ctx, answer); err != nil {
			return nil, err
		}
	}

	out.printf("Connecting...\n")
	if err := chatSession.WaitConnected(ctx, env.config.ConnectTimeout()); err != nil {
		return nil, err
	}
	out.printf("Connected to room %s.\n", chatSession.RoomID())
	ok = true
	return chatSession, nil
}

// joinHandshake answers an offer. code may be an invite, an offer code,
// or empty (prompt, or wait on the relay when one is configured).
func joinHandshake(ctx context.Context, env *environment, out *terminal, nick, code, credential string) (*session.Session, error) {
	chatSession, err := env.newSession(nick)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			chatSession.Close()
		}
	}()

	useRelay := env.config.Relay.URL != "" && code == ""
	if code == "" && !useRelay {
		code, err = out.prompt(ctx, "Paste the offer or invite code: ")
		if err != nil {
			return nil, err
		}
	}

	if !room.IsInvite(code) {
		if credential == "" {
			credential, err = out.prompt(ctx, "Room credential (<room_id>.<key>): ")
			if err != nil {
				return nil, err
			}
		}
		if err := chatSession.SetRoom(room.Credential(credential)); err != nil {
			return nil, err
		}
	}

	if useRelay {
		signaler, cleanup, err := env.dialSignaler(ctx, chatSession)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		out.printf("Waiting for the offer through %s ...\n", env.config.Relay.URL)
		if err := chatSession.AnswerVia(ctx, signaler); err != nil {
			return nil, err
		}
	} else {
		answer, err := chatSession.AcceptOffer(ctx, code)
		if err != nil {
			return nil, err
		}
		out.printf("\nAnswer code (give this back to the host):\n%s\n\n", answer)
	}

	out.printf("Connecting...\n")
	if err := chatSession.WaitConnected(ctx, env.config.ConnectTimeout()); err != nil {
		return nil, fmt.Errorf("waiting for the host: %w", err)
	}
	out.printf("Connected to room %s.\n", chatSession.RoomID())
	ok = true
	return chatSession, nil
}
