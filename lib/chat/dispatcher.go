// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/ghost/lib/clock"
	"github.com/bureau-foundation/ghost/lib/roomcipher"
)

// DestroyNotice is the system text delivered when the room is
// destroyed.
const DestroyNotice = "Room destroyed by admin"

// maxSeenIDs bounds the dedupe set. Once exceeded the oldest half is
// forgotten; a sync replaying lines older than that is unusual.
const maxSeenIDs = 4096

// Dispatcher applies the receive policy for one participant. It is
// safe for concurrent use.
type Dispatcher struct {
	cipher *roomcipher.Cipher
	self   string
	clock  clock.Clock
	logger *slog.Logger

	mu        sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
	destroyed bool
}

// NewDispatcher returns a Dispatcher that opens frames with cipher and
// treats self as the local participant ID.
func NewDispatcher(cipher *roomcipher.Cipher, self string, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cipher: cipher,
		self:   self,
		clock:  clk,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Handle decodes one inbound frame and returns the messages to deliver,
// in order. Frames that fail to open or parse yield nothing.
func (d *Dispatcher) Handle(frame string) []Message {
	message, ok := d.Decode(frame)
	if !ok {
		return nil
	}
	return d.Apply(message)
}

// Decode opens and parses a frame. Failures are logged by class only
// and reported as ok == false.
func (d *Dispatcher) Decode(frame string) (message Message, ok bool) {
	message, err := Decode(d.cipher, frame)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, roomcipher.ErrAuthenticationFailure) {
			reason = "authentication"
		}
		d.logger.Warn("dropping inbound frame", "reason", reason, "frame_bytes", len(frame))
		return Message{}, false
	}
	return message, true
}

// Apply runs the receive policy on an already-decoded message.
func (d *Dispatcher) Apply(message Message) []Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch message.Kind {
	case KindJoin:
		nick := message.Nick
		if nick == "" {
			nick = "?"
		}
		return []Message{NewSystem(nick+" joined", d.clock.Now())}

	case KindChat:
		if delivered, ok := d.acceptLocked(message); ok {
			return []Message{delivered}
		}
		return nil

	case KindSync:
		var delivered []Message
		for _, embedded := range message.Messages {
			if embedded.Kind != KindChat {
				continue
			}
			if accepted, ok := d.acceptLocked(embedded); ok {
				delivered = append(delivered, accepted)
			}
		}
		return delivered

	case KindDestroy:
		d.destroyed = true
		return []Message{NewSystem(DestroyNotice, d.clock.Now())}

	default:
		d.logger.Debug("ignoring message of unknown kind", "kind", string(message.Kind))
		return nil
	}
}

// Record marks an outbound chat line as seen, so a sync that replays
// it is not delivered back to its author.
func (d *Dispatcher) Record(message Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if message.ID != "" {
		d.markSeenLocked(message.ID)
	}
}

// Destroyed reports whether a destroy message has been received.
func (d *Dispatcher) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

func (d *Dispatcher) acceptLocked(message Message) (Message, bool) {
	if message.From == d.self {
		return Message{}, false
	}
	if message.ID != "" {
		if _, duplicate := d.seen[message.ID]; duplicate {
			return Message{}, false
		}
		d.markSeenLocked(message.ID)
	}
	message.PeerID = ""
	message.Messages = nil
	return message, true
}

func (d *Dispatcher) markSeenLocked(id string) {
	if _, present := d.seen[id]; present {
		return
	}
	d.seen[id] = struct{}{}
	d.seenOrder = append(d.seenOrder, id)
	if len(d.seenOrder) > maxSeenIDs {
		evict := d.seenOrder[:maxSeenIDs/2]
		for _, old := range evict {
			delete(d.seen, old)
		}
		d.seenOrder = append([]string(nil), d.seenOrder[maxSeenIDs/2:]...)
	}
}
