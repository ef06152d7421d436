// helpers_test.go: shared fixtures for plugin runtime tests
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// skipOnWindows skips tests that drive shell-script fake plugins.
func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("Skipping shell-script plugin test on Windows")
	}
}

// writeScript drops an executable fake plugin into dir and returns its
// path.
func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatalf("Failed to write fake plugin %s: %v", name, err)
	}
	return path
}

// echoScript answers every request line by echoing it back verbatim.
const echoScript = `#!/bin/bash
while IFS= read -r line; do
	echo "$line"
done
`

// fakeProviderScript is a minimal but complete provider. The session
// identifier embeds the process ID so a reconnect is observable as an
// identifier change.
const fakeProviderScript = `#!/bin/bash
if [ "$1" = "--plugin-info" ]; then
	echo '{"name":"fake","version":"1.0.0","type":"provider","description":"fake provider","schemes":["fake"]}'
	exit 0
fi
while IFS= read -r line; do
	case "$line" in
	*'"command":"get_dialog_fields"'*)
		echo '{"fields":[{"id":"host","label":"Host","type":"text","required":true}]}' ;;
	*'"command":"validate_config"'*)
		echo '{"valid":true}' ;;
	*'"command":"connect"'*)
		echo "{\"success\":true,\"session_id\":\"sess-$$\",\"short_label\":\"fk\"}" ;;
	*'"command":"disconnect"'*)
		echo '{"success":true}'
		exit 0 ;;
	*'"path":"/missing"'*)
		echo '{"error":"no such path","error_type":"not_found"}' ;;
	*'"command":"list_directory"'*)
		echo '{"entries":[{"name":"notes.txt","is_dir":false,"size":5},{"name":".cache","is_dir":true}]}' ;;
	*'"command":"read_file"'*)
		echo '{"data":"aGVsbG8="}' ;;
	*'"command":"set_attributes"'*)
		echo '{"error":"attributes not supported","error_type":"permission"}' ;;
	*)
		echo '{"success":true}' ;;
	esac
done
`
