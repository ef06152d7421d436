// discovery_windows.go: executable-candidate rules for Windows
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

//go:build windows

package barkplugins

import (
	"os"
	"path/filepath"
	"strings"
)

// candidateExtensions are the file extensions considered runnable
// plugin candidates on Windows, where no execute permission bit exists.
var candidateExtensions = map[string]bool{
	".exe": true,
	".py":  true,
	".bat": true,
	".cmd": true,
	".ps1": true,
	".rb":  true,
	".pl":  true,
}

// isExecutableCandidate reports whether a regular file qualifies for
// the discovery info query.
func isExecutableCandidate(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return candidateExtensions[strings.ToLower(filepath.Ext(path))]
}
