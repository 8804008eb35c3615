// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Ghost's CBOR encoding configuration.
//
// Ghost uses two serialization formats with a clear boundary:
//
//   - JSON for everything a browser peer can see: chat messages on the
//     data channel and the relay's peers/join/leave notices.
//   - CBOR for envelopes exchanged only between Go peers, such as the
//     sealed offer/answer announcements a relay signaler publishes.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same envelope always produces identical bytes. Unknown fields are
// ignored on decode for forward compatibility.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
