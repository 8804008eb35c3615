// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"errors"
	"fmt"
	"strings"
)

// Tag identifies which side of the handshake produced a code.
type Tag byte

const (
	// TagOffer marks a code produced by the side that created the room.
	TagOffer Tag = 'O'

	// TagAnswer marks a code produced in reply to an offer.
	TagAnswer Tag = 'A'
)

// String returns the human-readable name of the tag.
func (tag Tag) String() string {
	switch tag {
	case TagOffer:
		return "offer"
	case TagAnswer:
		return "answer"
	default:
		return fmt.Sprintf("unknown(%q)", byte(tag))
	}
}

// Valid reports whether tag is TagOffer or TagAnswer.
func (tag Tag) Valid() bool {
	return tag == TagOffer || tag == TagAnswer
}

var (
	// ErrUnrecognizedCodeTag is returned when a code does not start with
	// "O:" or "A:".
	ErrUnrecognizedCodeTag = errors.New("unrecognized exchange code tag")

	// ErrInvalidCodeFormat is returned by ParseCodeWithTag when the code
	// is not of the expected kind. Codes with no recognizable tag at all
	// also match ErrUnrecognizedCodeTag.
	ErrInvalidCodeFormat = errors.New("invalid exchange code format")
)

// Code is a parsed exchange code. The zero value is not valid.
type Code struct {
	Tag     Tag
	Payload string
}

// NewCode encodes descriptor and tags it.
func NewCode(tag Tag, descriptor string) Code {
	return Code{Tag: tag, Payload: Encode(descriptor)}
}

// String returns the wire form, e.g. "O:eJz...".
func (code Code) String() string {
	return string(code.Tag) + ":" + code.Payload
}

// Descriptor decodes the payload.
func (code Code) Descriptor() (string, error) {
	return Decode(code.Payload)
}

// ParseCode parses a code of either kind. Surrounding whitespace from
// copy/paste is ignored. The payload is fully decoded once to reject
// damaged codes before they reach the transport.
func ParseCode(text string) (Code, error) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[1] != ':' || !Tag(text[0]).Valid() {
		return Code{}, fmt.Errorf("%w: %q", ErrUnrecognizedCodeTag, truncate(text, 8))
	}
	code := Code{Tag: Tag(text[0]), Payload: text[2:]}
	if _, err := Decode(code.Payload); err != nil {
		return Code{}, err
	}
	return code, nil
}

// ParseCodeWithTag parses a code and requires it to carry want. A code
// with the other tag, or with no recognizable tag, fails with
// ErrInvalidCodeFormat.
func ParseCodeWithTag(text string, want Tag) (Code, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2 || trimmed[1] != ':' || !Tag(trimmed[0]).Valid() {
		return Code{}, fmt.Errorf("%w: expected %s code: %w", ErrInvalidCodeFormat, want, ErrUnrecognizedCodeTag)
	}
	if Tag(trimmed[0]) != want {
		return Code{}, fmt.Errorf("%w: expected %s code, got %s code", ErrInvalidCodeFormat, want, Tag(trimmed[0]))
	}
	return ParseCode(trimmed)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
