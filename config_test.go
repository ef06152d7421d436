// config_test.go: tests for runtime configuration loading
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeConfig_WithDefaults(t *testing.T) {
	cfg := RuntimeConfig{PluginDir: "/plugins"}.WithDefaults()

	assert.Equal(t, DefaultInfoTimeout, cfg.DiscoveryTimeout.Std())
	assert.Equal(t, DefaultCallTimeout, cfg.CallTimeout.Std())
	assert.Equal(t, DefaultCallDeadline, cfg.EphemeralTimeout.Std())
	assert.Equal(t, time.Duration(0), cfg.SessionMaxIdle.Std(), "Idle eviction defaults to disabled")
}

func TestRuntimeConfig_WithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := RuntimeConfig{
		PluginDir:   "/plugins",
		CallTimeout: Duration(2 * time.Second),
	}.WithDefaults()

	assert.Equal(t, 2*time.Second, cfg.CallTimeout.Std())
}

func TestRuntimeConfig_Validate(t *testing.T) {
	err := RuntimeConfig{}.Validate()
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfigValidation, errorCode(err))

	err = RuntimeConfig{PluginDir: "/p", CallTimeout: Duration(-time.Second)}.Validate()
	require.Error(t, err)

	assert.NoError(t, RuntimeConfig{PluginDir: "/p"}.Validate())
}

func TestLoadRuntimeConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	content := `
plugin_dir: /home/user/.config/bark/plugins
discovery_timeout: 2s
call_timeout: 45s
session_max_idle: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadRuntimeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/home/user/.config/bark/plugins", cfg.PluginDir)
	assert.Equal(t, 2*time.Second, cfg.DiscoveryTimeout.Std())
	assert.Equal(t, 45*time.Second, cfg.CallTimeout.Std())
	assert.Equal(t, 10*time.Minute, cfg.SessionMaxIdle.Std())
	assert.Equal(t, DefaultCallDeadline, cfg.EphemeralTimeout.Std(), "Omitted fields get defaults")
}

func TestLoadRuntimeConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.json")
	content := `{"plugin_dir": "/plugins", "ephemeral_timeout": "3s"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadRuntimeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/plugins", cfg.PluginDir)
	assert.Equal(t, 3*time.Second, cfg.EphemeralTimeout.Std())
}

func TestLoadRuntimeConfig_Errors(t *testing.T) {
	_, err := LoadRuntimeConfig("/nonexistent/runtime.yaml")
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfigParse, errorCode(err))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plugin_dir: [unclosed"), 0644))
	_, err = LoadRuntimeConfig(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfigParse, errorCode(err))

	// Parses fine but fails validation.
	path = filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("call_timeout: 5s"), 0644))
	_, err = LoadRuntimeConfig(path)
	require.Error(t, err)
}

func TestLoadRuntimeConfig_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plugin_dir: /p\ncall_timeout: fast\n"), 0644))
	_, err := LoadRuntimeConfig(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfigParse, errorCode(err))
}

func TestDuration_JSONRoundTrip(t *testing.T) {
	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(t, 250*time.Millisecond, d.Std())
}
