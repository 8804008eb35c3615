// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for Ghost's terminal UIs. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Speakers. OwnNick colors the local participant; remote
	// participants get a stable color from NickColors by nick.
	OwnNick    lipgloss.Color
	NickColors []lipgloss.Color

	// Notices.
	SystemText lipgloss.Color
	ErrorText  lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	HeaderBackground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	Accent           lipgloss.Color
}

// NickColor returns a stable color for a remote nick.
func (theme Theme) NickColor(nick string) lipgloss.Color {
	if len(theme.NickColors) == 0 {
		return theme.NormalText
	}
	hasher := fnv.New32a()
	hasher.Write([]byte(nick))
	return theme.NickColors[hasher.Sum32()%uint32(len(theme.NickColors))]
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	OwnNick: lipgloss.Color("114"), // green
	NickColors: []lipgloss.Color{
		lipgloss.Color("75"),  // blue
		lipgloss.Color("141"), // light purple
		lipgloss.Color("208"), // orange
		lipgloss.Color("220"), // amber
		lipgloss.Color("51"),  // cyan
	},

	SystemText: lipgloss.Color("245"),
	ErrorText:  lipgloss.Color("196"),

	HeaderForeground: lipgloss.Color("255"),
	HeaderBackground: lipgloss.Color("236"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	Accent:           lipgloss.Color("220"),
}
