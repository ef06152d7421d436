// discovery_unix.go: executable-candidate rules for POSIX platforms
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package barkplugins

import (
	"os"
	"path/filepath"
	"strings"
)

// scriptExtensions are interpreted-script suffixes accepted as plugin
// candidates even without the execute permission bit.
var scriptExtensions = map[string]bool{
	".py":   true,
	".rb":   true,
	".pl":   true,
	".sh":   true,
	".bash": true,
}

// isExecutableCandidate reports whether a regular file qualifies for
// the discovery info query: any execute bit set, or a recognized
// interpreted-script extension.
func isExecutableCandidate(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if info.Mode().Perm()&0o111 != 0 {
		return true
	}
	return scriptExtensions[strings.ToLower(filepath.Ext(path))]
}
