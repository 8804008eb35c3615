// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat defines the messages carried over an open channel and
// the receive-side policy applied to them.
//
// A message is a JSON object, sealed with the room cipher and sent as
// one text frame:
//
//	{"type":"join","peerId":"<id>","nick":"alice"}
//	{"type":"chat","id":"<id>","from":"<id>","nick":"alice","text":"hi","ts":1760000000000}
//	{"type":"sync","messages":[<chat>, ...]}
//	{"type":"destroy"}
//
// The field names match the browser client. Timestamps are Unix
// milliseconds. The "system" kind never crosses the wire: [Dispatcher]
// synthesizes it for notices such as "alice joined".
//
// [Dispatcher] turns inbound frames into deliverable messages. It
// suppresses echoes of the local participant's own chat lines,
// deduplicates history replayed through sync, and drops frames that
// fail authentication or parsing after logging the failure class.
// Unknown kinds are ignored so that newer peers can add message types.
package chat
