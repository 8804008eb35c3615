// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// LogFormat selects the handler NewCommandLogger builds.
type LogFormat int

const (
	// LogAuto picks text on a terminal and JSON otherwise.
	LogAuto LogFormat = iota
	LogText
	LogJSON
)

// NewCommandLogger creates the logger for a ghost command. With
// LogAuto it writes human-readable text when stderr is a terminal and
// JSON when stderr is piped or redirected.
//
// Callers scope it with command context via With():
//
//	logger := cli.NewCommandLogger(cli.LogAuto, slog.LevelInfo).With("command", "host")
func NewCommandLogger(format LogFormat, level slog.Level) *slog.Logger {
	return newLogger(os.Stderr, format, level, term.IsTerminal(int(os.Stderr.Fd())))
}

func newLogger(w io.Writer, format LogFormat, level slog.Level, terminal bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if format == LogJSON || (format == LogAuto && !terminal) {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}
