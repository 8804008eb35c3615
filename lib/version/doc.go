// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build information for the ghost and
// ghost-relay binaries.
//
// [GitCommit], [BuildTime], and [Version] are injected at build time
// via -ldflags -X and default to "unknown" / "0.1.0-dev" otherwise.
// [Info] formats them for --version output.
package version
