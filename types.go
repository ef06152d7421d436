// types.go: shared data types for the plugin runtime
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"strings"
	"time"
)

// PluginKind identifies the lifecycle category of a discovered plugin.
//
// The kind is declared by the plugin itself in its --plugin-info output
// and selects between the two process-management strategies: provider
// plugins get a persistent session process (SessionManager), viewer and
// status plugins are spawned per call (EphemeralInvoker).
type PluginKind int

const (
	KindProvider PluginKind = iota
	KindViewer
	KindStatus
)

// String returns a human-readable representation of the plugin kind.
func (k PluginKind) String() string {
	switch k {
	case KindProvider:
		return "provider"
	case KindViewer:
		return "viewer"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// ParsePluginKind maps a declared plugin type string onto a PluginKind.
// Historical aliases used by existing plugins are accepted.
func ParsePluginKind(s string) (PluginKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "provider":
		return KindProvider, true
	case "viewer", "view":
		return KindViewer, true
	case "status", "statusbar", "status_bar":
		return KindStatus, true
	default:
		return 0, false
	}
}

// PluginDescriptor is the identity and capability record of a discovered
// plugin. Descriptors are created during a discovery pass from the
// plugin's self-reported metadata and are immutable thereafter; a full
// re-scan discards and rebuilds them.
type PluginDescriptor struct {
	// Path is the plugin executable on disk.
	Path string

	// Self-reported metadata from --plugin-info. All fields are opaque
	// display strings as far as the host is concerned.
	Name        string
	Version     string
	Description string
	Icon        string

	// Kind selects the session-management strategy.
	Kind PluginKind

	// Schemes lists the URI schemes a provider plugin handles (for
	// example "ftp", "s3"). Extensions lists file-name suffixes: for
	// providers they drive extension-based matching (archive-style
	// plugins), for viewers they are informational only.
	Schemes    []string
	Extensions []string

	// DialogFields caches the connection dialog definition fetched from
	// scheme-based providers at discovery time.
	DialogFields []DialogField

	// DiscoveredAt records when this descriptor was built.
	DiscoveredAt time.Time
}

// HandlesScheme reports whether a provider descriptor declares the given
// URI scheme. Matching is case-insensitive.
func (d *PluginDescriptor) HandlesScheme(scheme string) bool {
	for _, s := range d.Schemes {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}
	return false
}

// HandlesFile reports whether a provider descriptor claims the given
// file name through one of its declared extensions. Matching is a
// case-insensitive suffix check so multi-part extensions like
// ".tar.gz" work.
func (d *PluginDescriptor) HandlesFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range d.Extensions {
		if ext == "" {
			continue
		}
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// FileEntry is one directory entry returned by a provider plugin.
// Entries are plain values; the protocol boundary always copies them.
type FileEntry struct {
	Name          string
	Path          string
	IsDir         bool
	Size          int64
	Modified      time.Time // zero when the provider did not report one
	IsHidden      bool
	Permissions   uint32
	IsSymlink     bool
	SymlinkTarget string
	Owner         string
	Group         string
}

// DialogFieldType enumerates the input widget kinds a provider can
// request for its connection dialog.
type DialogFieldType string

const (
	FieldText     DialogFieldType = "text"
	FieldPassword DialogFieldType = "password"
	FieldNumber   DialogFieldType = "number"
	FieldCheckbox DialogFieldType = "checkbox"
	FieldSelect   DialogFieldType = "select"
	FieldTextArea DialogFieldType = "textarea"
	FieldFilePath DialogFieldType = "filepath"
)

// DialogField describes one input in a provider's connection dialog.
type DialogField struct {
	ID          string
	Label       string
	Type        DialogFieldType
	Required    bool
	Default     string
	Placeholder string
	Help        string

	// Options is populated for FieldSelect only.
	Options []SelectOption
}

// SelectOption is one choice of a select dialog field.
type SelectOption struct {
	Value string
	Label string
}

// ProviderConfig is the user-supplied connection configuration passed
// to provider plugins. Values are an opaque flat string map; booleans
// and numbers are string-encoded. The host never interprets the values
// beyond the reserved "name" and "path" keys.
type ProviderConfig struct {
	// Name is the user-visible connection name.
	Name string

	// Values holds the dialog field values keyed by field ID.
	Values map[string]string
}

// Get returns a configuration value, or the empty string when unset.
func (c ProviderConfig) Get(key string) string {
	return c.Values[key]
}

// HomePath returns the initial path of a session established with this
// configuration, defaulting to "/".
func (c ProviderConfig) HomePath() string {
	if p := c.Values["path"]; p != "" {
		return p
	}
	return "/"
}

// ViewerProbe is the result of a viewer plugin's can-handle check.
type ViewerProbe struct {
	CanHandle bool
	Priority  int
}

// ViewerRender is one rendered page from a viewer plugin. Viewer
// plugins are stateless across renders: every scroll or resize issues a
// fresh invocation carrying path, dimensions and scroll offset.
type ViewerRender struct {
	Lines      []string
	TotalLines int
}

// StatusContext is the panel state handed to status plugins each tick.
type StatusContext struct {
	Path          string
	SelectedFile  string
	IsDir         bool
	FileSize      int64
	SelectedCount int
}

// SessionState tracks a provider session through its lifecycle.
//
// Transitions: Connecting -> Connected, Connected <-> Cached,
// any state -> Disconnected (explicit disconnect or transport failure).
type SessionState int

const (
	StateConnecting SessionState = iota
	StateConnected
	StateCached
	StateDisconnected
)

// String returns a human-readable representation of the session state.
func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateCached:
		return "cached"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
