// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the scaffolding shared by Ghost's
// long-running binaries: an HTTP server with listener lifecycle and
// graceful shutdown, and the standard JSON service logger.
//
// Binaries compose these in their own main() rather than subclassing a
// framework.
package service
