// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/ghost/lib/roomcipher"
)

// Kind is the "type" field of a message.
type Kind string

const (
	KindJoin    Kind = "join"
	KindChat    Kind = "chat"
	KindSync    Kind = "sync"
	KindDestroy Kind = "destroy"

	// KindSystem marks notices synthesized locally. Frames of this
	// kind arriving from a peer are ignored.
	KindSystem Kind = "system"
)

// ErrMalformedMessage is returned when a frame decrypts but does not
// contain a valid message.
var ErrMalformedMessage = errors.New("malformed chat message")

// Message is one protocol message. Fields not used by a kind are left
// empty and omitted on the wire.
type Message struct {
	Kind Kind   `json:"type"`
	ID   string `json:"id,omitempty"`
	From string `json:"from,omitempty"`

	// PeerID carries the sender in join messages. Decode folds it into
	// From, so callers only read From.
	PeerID string `json:"peerId,omitempty"`

	Nick      string    `json:"nick,omitempty"`
	Text      string    `json:"text,omitempty"`
	Timestamp int64     `json:"ts,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

// UnmarshalJSON accepts "ts" as integer or fractional milliseconds,
// truncating the fraction. Browser clients send Date.now() and the
// Python client sends time.time() * 1000.
func (message *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var wire struct {
		plain
		Timestamp json.Number `json:"ts,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*message = Message(wire.plain)
	message.Timestamp = 0
	if wire.Timestamp == "" {
		return nil
	}
	if millis, err := strconv.ParseInt(string(wire.Timestamp), 10, 64); err == nil {
		message.Timestamp = millis
		return nil
	}
	millis, err := strconv.ParseFloat(string(wire.Timestamp), 64)
	if err != nil || math.IsNaN(millis) || math.IsInf(millis, 0) ||
		millis > math.MaxInt64 || millis < math.MinInt64 {
		return fmt.Errorf("invalid ts %s", wire.Timestamp)
	}
	message.Timestamp = int64(millis)
	return nil
}

// Time returns the timestamp as a time.Time. Zero if unset.
func (message Message) Time() time.Time {
	if message.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(message.Timestamp)
}

// NewID returns a fresh message or participant identifier.
func NewID() string {
	return uuid.NewString()
}

// NewJoin announces a participant.
func NewJoin(from, nick string) Message {
	return Message{Kind: KindJoin, From: from, PeerID: from, Nick: nick}
}

// NewChat builds a chat line with a fresh ID.
func NewChat(from, nick, text string, now time.Time) Message {
	return Message{
		Kind:      KindChat,
		ID:        NewID(),
		From:      from,
		Nick:      nick,
		Text:      text,
		Timestamp: now.UnixMilli(),
	}
}

// NewSync wraps history for replay. The slice is copied.
func NewSync(messages []Message) Message {
	return Message{Kind: KindSync, Messages: append([]Message(nil), messages...)}
}

// NewDestroy signals that the room is being torn down.
func NewDestroy() Message {
	return Message{Kind: KindDestroy}
}

// NewSystem builds a local notice.
func NewSystem(text string, now time.Time) Message {
	return Message{Kind: KindSystem, ID: NewID(), Text: text, Timestamp: now.UnixMilli()}
}

// Marshal returns the JSON form of message.
func Marshal(message Message) ([]byte, error) {
	return json.Marshal(message)
}

// Unmarshal parses the JSON form of a message.
func Unmarshal(data []byte) (Message, error) {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if message.Kind == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	normalize(&message)
	return message, nil
}

func normalize(message *Message) {
	if message.From == "" {
		message.From = message.PeerID
	}
	for index := range message.Messages {
		normalize(&message.Messages[index])
	}
}

// Encode serializes and seals message into a text frame.
func Encode(cipher *roomcipher.Cipher, message Message) (string, error) {
	plaintext, err := Marshal(message)
	if err != nil {
		return "", fmt.Errorf("encoding %s message: %w", message.Kind, err)
	}
	return cipher.SealString(plaintext)
}

// Decode opens and parses a text frame. Errors match
// roomcipher.ErrAuthenticationFailure or ErrMalformedMessage.
func Decode(cipher *roomcipher.Cipher, frame string) (Message, error) {
	plaintext, err := cipher.OpenString(frame)
	if err != nil {
		return Message{}, err
	}
	return Unmarshal(plaintext)
}
