// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// terminal is the command's user-facing I/O: prompts and printed codes
// on stdout, answers on stdin. Logs go to stderr separately.
type terminal struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func newTerminal(in *os.File, out *os.File) *terminal {
	return &terminal{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd())),
	}
}

func (t *terminal) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// prompt prints label and reads one trimmed line. ctx cancellation
// abandons the read.
func (t *terminal) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(t.out, label)

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := t.in.ReadString('\n')
		done <- result{line, err}
	}()

	select {
	case read := <-done:
		line := strings.TrimSpace(read.line)
		if read.err != nil && !(errors.Is(read.err, io.EOF) && line != "") {
			if errors.Is(read.err, io.EOF) {
				return "", errors.New("input closed")
			}
			return "", read.err
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
