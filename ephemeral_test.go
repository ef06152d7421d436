// ephemeral_test.go: tests for one-shot viewer and status invocation
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// viewerScript builds a fake viewer that claims (or rejects) every file
// at a fixed priority and renders a recognizable line.
func viewerScript(canHandle bool, priority int) string {
	return fmt.Sprintf(`#!/bin/bash
while IFS= read -r line; do
	case "$line" in
	*'"command":"viewer_can_handle"'*)
		echo '{"can_handle":%t,"priority":%d}' ;;
	*'"command":"viewer_render"'*)
		echo '{"lines":["rendered by priority %d"],"total_lines":40}' ;;
	*)
		echo '{"error":"unknown command"}' ;;
	esac
done
`, canHandle, priority, priority)
}

func viewerDescriptor(t *testing.T, dir, name, script string) *PluginDescriptor {
	t.Helper()
	return &PluginDescriptor{
		Path: writeScript(t, dir, name, script),
		Name: name,
		Kind: KindViewer,
	}
}

func TestSelectViewer_HighestPriorityWins(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	low := viewerDescriptor(t, dir, "low.sh", viewerScript(true, 5))
	high := viewerDescriptor(t, dir, "high.sh", viewerScript(true, 15))

	invoker := NewEphemeralInvoker(5*time.Second, NewTestLogger())
	picked := invoker.SelectViewer(context.Background(), []*PluginDescriptor{low, high}, "/doc.md")
	require.NotNil(t, picked)
	assert.Same(t, high, picked)
}

func TestSelectViewer_TieGoesToFirstDiscovered(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	first := viewerDescriptor(t, dir, "first.sh", viewerScript(true, 10))
	second := viewerDescriptor(t, dir, "second.sh", viewerScript(true, 10))

	invoker := NewEphemeralInvoker(5*time.Second, nil)
	picked := invoker.SelectViewer(context.Background(), []*PluginDescriptor{first, second}, "/doc.md")
	assert.Same(t, first, picked)
}

func TestSelectViewer_FailingViewerExcluded(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	broken := viewerDescriptor(t, dir, "broken.sh", "#!/bin/bash\nexit 1\n")
	working := viewerDescriptor(t, dir, "working.sh", viewerScript(true, 1))

	invoker := NewEphemeralInvoker(5*time.Second, NewTestLogger())
	picked := invoker.SelectViewer(context.Background(), []*PluginDescriptor{broken, working}, "/doc.md")
	assert.Same(t, working, picked, "A crashing viewer must not block selection")
}

func TestSelectViewer_NoneClaims(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	viewer := viewerDescriptor(t, dir, "no.sh", viewerScript(false, 10))

	invoker := NewEphemeralInvoker(5*time.Second, nil)
	assert.Nil(t, invoker.SelectViewer(context.Background(), []*PluginDescriptor{viewer}, "/doc.md"))
	assert.Nil(t, invoker.SelectViewer(context.Background(), nil, "/doc.md"))
}

func TestRenderViewer(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	viewer := viewerDescriptor(t, dir, "v.sh", viewerScript(true, 3))

	invoker := NewEphemeralInvoker(5*time.Second, nil)
	render, err := invoker.RenderViewer(context.Background(), viewer, "/doc.md", 80, 24, 0)
	require.NoError(t, err)
	require.Len(t, render.Lines, 1)
	assert.Equal(t, "rendered by priority 3", render.Lines[0])
	assert.Equal(t, 40, render.TotalLines)
}

func TestRenderStatus(t *testing.T) {
	skipOnWindows(t)

	script := `#!/bin/bash
while IFS= read -r line; do
	echo '{"text":"3 selected"}'
done
`
	desc := &PluginDescriptor{
		Path: writeScript(t, t.TempDir(), "status.sh", script),
		Name: "sel",
		Kind: KindStatus,
	}

	invoker := NewEphemeralInvoker(5*time.Second, nil)
	text, err := invoker.RenderStatus(context.Background(), desc, StatusContext{
		Path:          "/home",
		SelectedCount: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "3 selected", text)
}

func TestInvoke_DeadlineBoundsHangingPlugin(t *testing.T) {
	skipOnWindows(t)

	script := `#!/bin/bash
while IFS= read -r line; do
	sleep 60
done
`
	path := writeScript(t, t.TempDir(), "hang.sh", script)

	invoker := NewEphemeralInvoker(300*time.Millisecond, nil)
	start := time.Now()
	_, err := invoker.Invoke(context.Background(), path, []byte(`{"command":"viewer_can_handle"}`))
	require.Error(t, err)
	assert.True(t, IsTransportTimeout(err), "Expected transport timeout, got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProviderValidateConfig_Ephemeral(t *testing.T) {
	skipOnWindows(t)

	script := `#!/bin/bash
while IFS= read -r line; do
	case "$line" in
	*'"empty"'*) echo '{"error":"host must not be empty","error_type":"config"}' ;;
	*) echo '{"valid":true}' ;;
	esac
done
`
	desc := &PluginDescriptor{
		Path: writeScript(t, t.TempDir(), "validator.sh", script),
		Name: "validator",
		Kind: KindProvider,
	}

	invoker := NewEphemeralInvoker(5*time.Second, nil)
	ctx := context.Background()

	err := invoker.ProviderValidateConfig(ctx, desc, ProviderConfig{
		Name:   "ok",
		Values: map[string]string{"host": "example.com"},
	})
	assert.NoError(t, err)

	err = invoker.ProviderValidateConfig(ctx, desc, ProviderConfig{
		Name:   "bad",
		Values: map[string]string{"host": "empty"},
	})
	require.Error(t, err)
	assert.Equal(t, ProviderErrConfig, ProviderErrorClass(err))
}

func TestProviderDialogFields_Ephemeral(t *testing.T) {
	skipOnWindows(t)

	desc := &PluginDescriptor{
		Path:    writeScript(t, t.TempDir(), "provider.sh", fakeProviderScript),
		Name:    "fake",
		Kind:    KindProvider,
		Schemes: []string{"fake"},
	}

	invoker := NewEphemeralInvoker(5*time.Second, nil)
	fields, err := invoker.ProviderDialogFields(context.Background(), desc)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "host", fields[0].ID)
	assert.True(t, fields[0].Required)
}
