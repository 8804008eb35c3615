// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
)

// Role is the local side of a negotiation.
type Role uint8

const (
	// RoleOffering creates the room and the offer descriptor.
	RoleOffering Role = iota + 1

	// RoleAnswering applies an offer and produces the answer.
	RoleAnswering
)

// String returns "offering" or "answering".
func (role Role) String() string {
	switch role {
	case RoleOffering:
		return "offering"
	case RoleAnswering:
		return "answering"
	default:
		return fmt.Sprintf("role(%d)", uint8(role))
	}
}

var (
	// ErrNotOpen is returned by SendFrame before the channel opens.
	ErrNotOpen = errors.New("channel is not open")

	// ErrPeerClosed is the Err of a Peer whose remote side went away.
	ErrPeerClosed = errors.New("remote peer closed the channel")

	// ErrConnectionFailed is the Err of a Peer whose connection failed.
	ErrConnectionFailed = errors.New("peer connection failed")

	// ErrNegotiation is returned when a descriptor cannot be applied.
	ErrNegotiation = errors.New("negotiation failed")
)

// Peer is one end of a negotiated connection carrying text frames.
//
// The offering side calls CreateLocalDescription(RoleOffering), shares
// LocalDescriptor once GatheringComplete fires, then applies the answer
// with SetRemoteDescription(answer, RoleOffering). The answering side
// calls SetRemoteDescription(offer, RoleAnswering) first, then
// CreateLocalDescription(RoleAnswering). In both calls role is the
// local role.
type Peer interface {
	// CreateLocalDescription starts ICE gathering for the local
	// descriptor. It does not wait for gathering to finish.
	CreateLocalDescription(role Role) error

	// SetRemoteDescription applies the other side's descriptor.
	SetRemoteDescription(descriptor string, role Role) error

	// LocalDescriptor returns the local descriptor with every candidate
	// gathered so far.
	LocalDescriptor() string

	// GatheringComplete is closed when candidate gathering finishes.
	GatheringComplete() <-chan struct{}

	// ChannelOpen is closed when the data channel is open for frames.
	ChannelOpen() <-chan struct{}

	// Frames delivers inbound text frames in arrival order. It is never
	// closed; watch Done.
	Frames() <-chan string

	// Done is closed when the connection ends for any reason.
	Done() <-chan struct{}

	// Err returns the reason Done was closed: nil after a local Close,
	// otherwise ErrPeerClosed, ErrConnectionFailed, or a wrapped cause.
	Err() error

	// SendFrame transmits one text frame.
	SendFrame(frame string) error

	// Close releases the connection. Idempotent.
	Close() error
}
