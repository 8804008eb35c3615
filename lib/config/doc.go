// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the ghost and ghost-relay
// binaries.
//
// Configuration comes from a single file named by either the
// GHOST_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no discovery; without a
// file the binaries run on [Default]. Environment variables never
// override individual values.
//
// Files ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas (tidwall/jsonc); anything else is parsed as YAML.
// Values from the file are merged over [Default], so a file only needs
// the keys it changes.
//
// Durations are written as Go duration strings ("5s", "250ms") and
// exposed through accessor methods after [Config.Validate] has checked
// that they parse.
//
// This package depends on no other Ghost packages.
package config
