// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/bureau-foundation/ghost/transport"
)

// State is a session's position in the handshake.
type State uint8

const (
	StateIdle State = iota
	StateNegotiating
	StateIceGathering
	StateAwaitingRemote
	StateOpen
	StateClosed
)

// String returns the state name used in logs.
func (state State) String() string {
	switch state {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateIceGathering:
		return "ice_gathering"
	case StateAwaitingRemote:
		return "awaiting_remote"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint8(state))
	}
}

// Role is the side of the handshake a session plays. The zero value
// means no negotiation has started.
type Role = transport.Role

const (
	RoleOffering  = transport.RoleOffering
	RoleAnswering = transport.RoleAnswering
)
