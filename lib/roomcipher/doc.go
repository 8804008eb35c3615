// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package roomcipher seals and opens chat frames under a room key.
//
// Every sealed frame has the layout
//
//	[Nonce: 12 bytes (random)] [Ciphertext+Tag: N+16 bytes]
//
// with a fresh random nonce per call. The default suite is
// AES-256-GCM, which is what the browser client produces through
// WebCrypto, so frames interoperate with it byte for byte.
// ChaCha20-Poly1305 shares the key size, nonce size, and layout and
// can be selected when every participant is a Go client.
//
// With 96-bit random nonces the collision probability stays below
// 2^-32 for the first 2^32 frames under one key. Rooms are short-lived
// and every room has a fresh key, so no counter or rekeying is kept.
//
// [Open] reports every failure (wrong key, modified bytes, truncation,
// input shorter than nonce plus tag) as [ErrAuthenticationFailure]
// without returning any plaintext.
//
// On the wire, frames are the base64url (unpadded) encoding of the
// sealed bytes; [Cipher.SealString] and [Cipher.OpenString] produce
// and consume that form.
package roomcipher
