// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the peer connection a ghost session
// negotiates and then chats over.
//
// [Peer] is the capability the session consumes: produce a local
// connection descriptor, apply the remote one, and once the channel is
// open, exchange text frames. Suspension points are exposed as
// channels rather than callbacks: [Peer.GatheringComplete],
// [Peer.ChannelOpen], [Peer.Frames], and [Peer.Done].
//
// The production implementation, [WebRTCPeer], uses one pion/webrtc
// PeerConnection with a single ordered data channel labelled "ghost",
// which is what the browser client opens. Signaling is vanilla ICE:
// candidates are gathered into the descriptor before it is shared, so
// the handshake needs exactly one offer and one answer.
//
// [MemoryNetwork] hands out [MemoryPeer] values that connect in-process
// for state-machine tests. Descriptors are opaque "memory:<uuid>"
// tokens, and hooks simulate negotiation failure and stalled gathering.
//
// Exchange codes normally travel by copy and paste. [Signaler]
// abstracts an automated path for them: [MemorySignaler] for tests,
// and the relay package's signaler for real use.
//
// [ICEConfig] holds STUN/TURN servers; [ICEConfigFromConfig] converts
// the lib/config form.
package transport
