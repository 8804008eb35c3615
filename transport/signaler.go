// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"

	"github.com/bureau-foundation/ghost/lib/exchange"
)

// Signaler carries exchange codes between the two sides of a
// handshake when they are not copied by hand. The offering side
// publishes its offer and waits for an answer; the answering side
// waits for an offer and publishes its answer. Exactly one round trip
// is needed because descriptors are complete (vanilla ICE).
type Signaler interface {
	// PublishCode makes code available to the other side.
	PublishCode(ctx context.Context, code exchange.Code) error

	// NextCode blocks until a code with the given tag, published by
	// the other side, is available.
	NextCode(ctx context.Context, tag exchange.Tag) (exchange.Code, error)
}
