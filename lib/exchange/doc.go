// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package exchange implements exchange codes: the short, copy-pasteable
// strings two parties trade out of band to negotiate a peer connection.
//
// A code is a one-letter tag, a colon, and a payload:
//
//	O:<payload>    offer
//	A:<payload>    answer
//
// The payload is the connection descriptor (an SDP document for the
// WebRTC transport) compressed with zlib (RFC 1950: a deflate stream
// with a two-byte header and an Adler-32 trailer) and then encoded as
// base64url without padding. zlib framing is what both the browser's
// CompressionStream("deflate") and Python's zlib.compress emit, so
// codes produced by any of the clients decode here. Raw deflate
// without the zlib wrapper is rejected.
//
// Decoding never yields partial text. Any defect in the base64
// alphabet, the zlib header, the deflate stream, or the checksum is
// reported as [ErrMalformedPayload].
package exchange
