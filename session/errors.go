// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"

	"github.com/bureau-foundation/ghost/lib/exchange"
)

// Code parsing errors, re-exported so callers need only this package.
var (
	ErrInvalidCodeFormat   = exchange.ErrInvalidCodeFormat
	ErrMalformedPayload    = exchange.ErrMalformedPayload
	ErrUnrecognizedCodeTag = exchange.ErrUnrecognizedCodeTag
)

var (
	// ErrConnectionTimeout is returned by WaitConnected when the
	// channel does not open in time. The session stays as it was.
	ErrConnectionTimeout = errors.New("timed out waiting for the channel to open")

	// ErrReceiveTimeout is returned by Receive when nothing arrives in
	// time.
	ErrReceiveTimeout = errors.New("timed out waiting for a message")

	// ErrChannelClosed is returned by operations on a closed session.
	ErrChannelClosed = errors.New("channel closed")

	// ErrInvalidState is returned when an operation is not valid in the
	// session's current state or role.
	ErrInvalidState = errors.New("operation not valid in this session state")

	// ErrNoRoom is returned by AcceptOffer when no room credential has
	// been installed.
	ErrNoRoom = errors.New("no room credential set")

	// ErrRoomDestroyed is the close cause after a peer sends destroy.
	ErrRoomDestroyed = errors.New("room destroyed by peer")
)
