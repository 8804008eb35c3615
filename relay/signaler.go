// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/ghost/lib/chat"
	"github.com/bureau-foundation/ghost/lib/codec"
	"github.com/bureau-foundation/ghost/lib/exchange"
	"github.com/bureau-foundation/ghost/lib/roomcipher"
	"github.com/bureau-foundation/ghost/lib/secret"
	"github.com/bureau-foundation/ghost/transport"
)

// Compile-time interface check.
var _ transport.Signaler = (*Signaler)(nil)

// signalPurpose names the subkey that seals relay signaling envelopes.
const signalPurpose = "relay"

// envelope is the plaintext of one signaling frame.
type envelope struct {
	Tag    string `cbor:"tag"`
	Code   string `cbor:"code"`
	Sender string `cbor:"sender"`
}

// Signaler carries exchange codes through a relay room. Codes are
// sealed with a key derived from the room key, so the relay forwards
// only opaque text. When another member joins, the last published
// code is sent again so late joiners still see it.
type Signaler struct {
	client *Client
	key    *secret.Buffer
	cipher *roomcipher.Cipher
	sender string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// NewSignaler binds a Signaler to client for the given room. The
// Signaler does not own client.
func NewSignaler(client *Client, roomID string, roomKey *secret.Buffer, logger *slog.Logger) (*Signaler, error) {
	key, err := roomcipher.DeriveKey(roomKey, roomID, signalPurpose)
	if err != nil {
		return nil, err
	}
	cipher, err := roomcipher.New(roomcipher.AES256GCM, key)
	if err != nil {
		key.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Signaler{
		client: client,
		key:    key,
		cipher: cipher,
		sender: chat.NewID(),
		logger: logger.With("room", roomID),
	}, nil
}

// PublishCode seals code and sends it to the room.
func (s *Signaler) PublishCode(ctx context.Context, code exchange.Code) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	plaintext, err := codec.Marshal(envelope{Tag: string(code.Tag), Code: code.String(), Sender: s.sender})
	if err != nil {
		return fmt.Errorf("encoding signal envelope: %w", err)
	}
	frame, err := s.cipher.SealString(plaintext)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.last = frame
	s.mu.Unlock()

	s.logger.Debug("publishing exchange code", "tag", code.Tag.String())
	return s.client.Send(frame)
}

// NextCode waits for a code with the given tag from another member.
// Frames that do not open under the room's signaling key, this
// Signaler's own codes, and codes with another tag are skipped.
func (s *Signaler) NextCode(ctx context.Context, tag exchange.Tag) (exchange.Code, error) {
	if !tag.Valid() {
		return exchange.Code{}, fmt.Errorf("%w: %q", exchange.ErrUnrecognizedCodeTag, string(tag))
	}
	for {
		select {
		case frame := <-s.client.Frames():
			code, ok := s.open(frame)
			if ok && code.Tag == tag {
				s.logger.Debug("received exchange code", "tag", tag.String())
				return code, nil
			}

		case notice := <-s.client.Notices():
			if notice.Type == NoticeJoin {
				s.republish()
			}

		case <-s.client.Done():
			if err := s.client.Err(); err != nil {
				return exchange.Code{}, fmt.Errorf("%w: %w", ErrClientClosed, err)
			}
			return exchange.Code{}, ErrClientClosed

		case <-ctx.Done():
			return exchange.Code{}, ctx.Err()
		}
	}
}

// Close zeroes the signaling key. The Client is left open.
func (s *Signaler) Close() error {
	return s.key.Close()
}

func (s *Signaler) open(frame string) (exchange.Code, bool) {
	plaintext, err := s.cipher.OpenString(frame)
	if err != nil {
		s.logger.Debug("ignoring relay frame", "reason", "authentication", "frame_bytes", len(frame))
		return exchange.Code{}, false
	}
	var received envelope
	if err := codec.Unmarshal(plaintext, &received); err != nil {
		s.logger.Debug("ignoring relay frame", "reason", "malformed", "frame_bytes", len(frame))
		return exchange.Code{}, false
	}
	if received.Sender == s.sender {
		return exchange.Code{}, false
	}
	code, err := exchange.ParseCode(received.Code)
	if err != nil || string(code.Tag) != received.Tag {
		s.logger.Debug("ignoring relay frame", "reason", "invalid code")
		return exchange.Code{}, false
	}
	return code, true
}

func (s *Signaler) republish() {
	s.mu.Lock()
	frame := s.last
	s.mu.Unlock()
	if frame == "" {
		return
	}
	if err := s.client.Send(frame); err != nil {
		s.logger.Warn("republishing exchange code", "error", err)
		return
	}
	s.logger.Debug("republished exchange code for new member")
}
