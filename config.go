// config.go: runtime configuration loading and defaults
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can spell timeouts as
// "5s" or "2m" in both YAML and JSON.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// RuntimeConfig carries the tunable settings of the plugin runtime.
// The zero value plus WithDefaults is a working configuration once
// PluginDir is set.
type RuntimeConfig struct {
	// PluginDir is the single directory scanned for plugin
	// executables. Discovery does not recurse into subdirectories.
	PluginDir string `json:"plugin_dir" yaml:"plugin_dir"`

	// DiscoveryTimeout bounds the --plugin-info query per candidate.
	DiscoveryTimeout Duration `json:"discovery_timeout" yaml:"discovery_timeout"`

	// CallTimeout bounds one provider round trip on an established
	// session.
	CallTimeout Duration `json:"call_timeout" yaml:"call_timeout"`

	// EphemeralTimeout bounds a whole viewer or status invocation,
	// spawn to teardown.
	EphemeralTimeout Duration `json:"ephemeral_timeout" yaml:"ephemeral_timeout"`

	// SessionMaxIdle is how long a cached session may sit unused
	// before eviction. Zero disables idle eviction.
	SessionMaxIdle Duration `json:"session_max_idle" yaml:"session_max_idle"`
}

// WithDefaults fills unset fields with the runtime defaults and
// returns the completed config.
func (c RuntimeConfig) WithDefaults() RuntimeConfig {
	if c.DiscoveryTimeout <= 0 {
		c.DiscoveryTimeout = Duration(DefaultInfoTimeout)
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = Duration(DefaultCallTimeout)
	}
	if c.EphemeralTimeout <= 0 {
		c.EphemeralTimeout = Duration(DefaultCallDeadline)
	}
	return c
}

// Validate reports the first problem that would keep the runtime from
// working.
func (c RuntimeConfig) Validate() error {
	if c.PluginDir == "" {
		return NewConfigValidationError("plugin_dir must be set", nil)
	}
	if c.DiscoveryTimeout < 0 || c.CallTimeout < 0 || c.EphemeralTimeout < 0 || c.SessionMaxIdle < 0 {
		return NewConfigValidationError("timeouts must not be negative", nil)
	}
	return nil
}

// LoadRuntimeConfig reads a config file, choosing the format by file
// extension: .yaml/.yml parse as YAML, anything else as JSON. The
// result has defaults applied and is validated.
func LoadRuntimeConfig(path string) (RuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeConfig{}, NewConfigParseError(path, err)
	}

	var cfg RuntimeConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return RuntimeConfig{}, NewConfigParseError(path, err)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
