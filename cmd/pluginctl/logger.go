// logger.go: stderr logger backing the --verbose flag
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"io"
	"os"

	barkplugins "github.com/barkfm/bark-plugins"
)

// stderrLogger writes plugin runtime activity to standard error, one
// line per event, keeping stdout free for command output.
type stderrLogger struct {
	out    io.Writer
	fields []any
}

func newStderrLogger() *stderrLogger {
	return &stderrLogger{out: os.Stderr}
}

func (l *stderrLogger) log(level, msg string, args []any) {
	fmt.Fprintf(l.out, "%-5s %s", level, msg)
	for i := 0; i+1 < len(l.fields); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", l.fields[i], l.fields[i+1])
	}
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", args[i], args[i+1])
	}
	fmt.Fprintln(l.out)
}

func (l *stderrLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args) }
func (l *stderrLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args) }
func (l *stderrLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args) }
func (l *stderrLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args) }

func (l *stderrLogger) With(args ...any) barkplugins.Logger {
	fields := make([]any, 0, len(l.fields)+len(args))
	fields = append(fields, l.fields...)
	fields = append(fields, args...)
	return &stderrLogger{out: l.out, fields: fields}
}
