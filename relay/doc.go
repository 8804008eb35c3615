// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay implements the optional rendezvous service: a
// websocket fan-out that forwards opaque frames between connections
// that named the same room.
//
// The relay never holds a room key. Everything it forwards is either a
// sealed frame it cannot read or one of three notices it generates
// itself:
//
//	{"type":"peers","count":N}   to a joiner: members now in the room
//	{"type":"join"}              to the others when someone joins
//	{"type":"leave"}             to the others when someone leaves
//
// [Hub] is the room registry. Each room serialises its own membership
// changes and fan-out; different rooms never wait on each other. A
// room exists only while it has members.
//
// [Server] is the websocket endpoint (one connection per member, room
// chosen by the "room" query parameter). [Client] is the matching
// dialer, and [Signaler] carries exchange codes through a Client so two
// sessions can handshake without copy and paste.
package relay
