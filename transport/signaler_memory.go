// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/ghost/lib/exchange"
)

// Compile-time interface check.
var _ Signaler = (*MemorySignaler)(nil)

// memorySignalerDepth is how many unconsumed codes of one tag a
// MemorySignaler holds before PublishCode blocks.
const memorySignalerDepth = 8

// MemorySignaler is an in-process Signaler for tests. Both sides of a
// handshake share one instance; codes are queued per tag.
type MemorySignaler struct {
	offers  chan exchange.Code
	answers chan exchange.Code
}

// NewMemorySignaler creates a new in-process signaler.
func NewMemorySignaler() *MemorySignaler {
	return &MemorySignaler{
		offers:  make(chan exchange.Code, memorySignalerDepth),
		answers: make(chan exchange.Code, memorySignalerDepth),
	}
}

func (s *MemorySignaler) queue(tag exchange.Tag) (chan exchange.Code, error) {
	switch tag {
	case exchange.TagOffer:
		return s.offers, nil
	case exchange.TagAnswer:
		return s.answers, nil
	default:
		return nil, fmt.Errorf("%w: %s", exchange.ErrUnrecognizedCodeTag, tag)
	}
}

func (s *MemorySignaler) PublishCode(ctx context.Context, code exchange.Code) error {
	queue, err := s.queue(code.Tag)
	if err != nil {
		return err
	}
	select {
	case queue <- code:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MemorySignaler) NextCode(ctx context.Context, tag exchange.Tag) (exchange.Code, error) {
	queue, err := s.queue(tag)
	if err != nil {
		return exchange.Code{}, err
	}
	select {
	case code := <-queue:
		return code, nil
	case <-ctx.Done():
		return exchange.Code{}, ctx.Err()
	}
}
