// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session drives one ghost conversation from handshake to
// teardown.
//
// A Session is an explicit state machine:
//
//	Idle -> Negotiating -> IceGathering -> AwaitingRemote -> Open -> Closed
//
// The offering side enters Negotiating from [Session.CreateRoom], which
// generates a fresh room and returns the offer code. The answering
// side enters it from [Session.AcceptOffer] after the room credential
// has been installed with [Session.SetRoom] (or carried in an invite).
// Both sides wait in IceGathering until the transport reports that
// candidate gathering finished, or until the gather timeout expires;
// expiry is not fatal and the descriptor is sent with whatever
// candidates were found. Open is entered only when the transport
// confirms the data channel, at which point the session announces
// itself with a join message.
//
// Every suspension point ([Session.WaitConnected], [Session.Receive],
// the gather wait) is a select over the transport's channels, a
// [clock.Clock] timer, and the caller's context. Timeouts are reported
// as typed errors and leave the state unchanged.
//
// One goroutine per session reads transport events. Inbound frames are
// opened with the room cipher and passed through a [chat.Dispatcher];
// the resulting messages join an unbounded FIFO queue drained by
// Receive. Malformed or forged frames are logged and dropped. A
// transport failure closes the session; later sends fail with
// [ErrChannelClosed], and Receive returns whatever was already queued
// before reporting it.
//
// Chat lines sent and received are kept in a bounded history. When a
// peer joins an open session, the history is replayed to it as a sync
// message.
//
// Close zeroes the room key. Room keys and message text are never
// logged; the room ID and key fingerprint are.
package session
