// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key material outside the Go heap.
//
// A [Buffer] is an anonymous mmap region that is locked into RAM
// (mlock), excluded from core dumps (MADV_DONTDUMP), and zeroed on
// Close. Ghost keeps every room key in a Buffer for the lifetime of
// the session that owns it; the key is never converted to a string
// except at the base64url boundary where it is handed to the user.
//
// Constructors:
//
//   - [New] allocates a zero-filled buffer
//   - [NewFromBytes] copies into protected memory and zeros the source
//   - [NewRandom] fills a new buffer from crypto/rand
//
// After Close, any access panics. Close is idempotent.
package secret
