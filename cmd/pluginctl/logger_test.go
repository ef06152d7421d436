// logger_test.go: tests for the --verbose stderr logger
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStderrLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := &stderrLogger{out: &buf}

	logger.Info("Discovered plugin", "name", "md-viewer", "version", "2.1.0")
	logger.Error("Scan failed")

	out := buf.String()
	assert.Contains(t, out, "INFO  Discovered plugin name=md-viewer version=2.1.0\n")
	assert.Contains(t, out, "ERROR Scan failed\n")
}

func TestStderrLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := &stderrLogger{out: &buf}

	scoped := base.With("executable", "/p/a.sh")
	scoped.Debug("Skipping plugin candidate", "error", "bad metadata")

	assert.Contains(t, buf.String(), "DEBUG Skipping plugin candidate executable=/p/a.sh error=bad metadata\n")

	// The parent logger keeps no fields of the child.
	buf.Reset()
	base.Warn("plain")
	assert.Equal(t, "WARN  plain\n", buf.String())
}

func TestRootOptions_VerboseLogger(t *testing.T) {
	opts := &rootOptions{verbose: true}
	_, toStderr := opts.logger().(*stderrLogger)
	assert.True(t, toStderr, "verbose must select the stderr logger")

	opts.verbose = false
	_, toStderr = opts.logger().(*stderrLogger)
	assert.False(t, toStderr)
}
