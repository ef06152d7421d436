// main.go: pluginctl entry point
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package main

import "os"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
