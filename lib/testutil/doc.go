// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Ghost packages.
//
// [RequireReceive], [RequireClosed], and [RequireNoReceive] wrap the
// select-with-timeout safety valve so that tests never hang on a
// channel that a broken implementation forgot to feed. They are the
// only place in the test suite where wall-clock timeouts are used;
// anything that measures protocol deadlines uses lib/clock instead.
//
// [UniqueID] produces distinct message texts and nicknames for tests
// that share a relay room or a memory network.
package testutil
