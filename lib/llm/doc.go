// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm provides a small provider-agnostic interface for chat
// completion backends.
//
// The abstraction is [Provider]: one blocking [Provider.Complete] call
// per turn. Provider implementations translate between the common
// types in this package and each backend's wire format.
//
// All HTTP requests go through a caller-supplied [http.Client], so
// timeouts and transports are the caller's decision. Response bodies
// are read through [netutil.DecodeResponse], which bounds their size.
//
// Current provider implementations:
//   - [Ollama]: local models via the Ollama chat API (/api/chat)
package llm
