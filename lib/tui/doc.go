// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides shared terminal user interface pieces for
// Ghost's interactive views: the color theme and the scrollbar. Built
// on lipgloss so every view renders with the same palette.
package tui
