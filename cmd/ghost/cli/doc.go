// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the ghost binary:
// a tree of [Command] values with pflag flag sets, typo suggestions
// for unknown commands and flags, and the logger every command shares.
package cli
