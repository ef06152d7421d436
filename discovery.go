// discovery.go: plugin discovery through directory scanning and info queries
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/go-timecache"
)

// infoArgument is the single fixed argument that asks an executable to
// report its plugin metadata and exit.
const infoArgument = "--plugin-info"

// DefaultInfoTimeout bounds the metadata query per candidate. Plugins
// that hang past it are killed and skipped; the scan continues.
const DefaultInfoTimeout = 5 * time.Second

// Scanner discovers plugins in a single directory.
//
// A scan enumerates the directory (non-recursive), filters entries to
// platform-defined executable candidates, invokes each candidate with
// the info argument, and validates the self-reported metadata. Every
// failure is per-candidate: a crashing, hanging or malformed candidate
// is logged and skipped, never aborting the scan. Standard error of
// the info query is discarded.
//
// The naming convention bark-<name> for plugin files is advisory only
// and not enforced here.
type Scanner struct {
	infoTimeout time.Duration
	logger      Logger
}

// NewScanner creates a discovery scanner. A zero timeout selects
// DefaultInfoTimeout.
func NewScanner(infoTimeout time.Duration, logger Logger) *Scanner {
	if infoTimeout <= 0 {
		infoTimeout = DefaultInfoTimeout
	}
	return &Scanner{
		infoTimeout: infoTimeout,
		logger:      NewLogger(logger),
	}
}

// pluginInfo is the wire shape of the --plugin-info output.
type pluginInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Schemes     []string `json:"schemes"`
	Extensions  []string `json:"extensions"`
}

// Scan discovers all plugins under dir and returns their descriptors
// in directory iteration order. The returned error covers only the
// directory enumeration itself; individual candidates never fail a
// scan.
func (s *Scanner) Scan(ctx context.Context, dir string) ([]*PluginDescriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewDiscoveryScanError(dir, err)
	}

	s.logger.Info("Scanning plugin directory", "directory", dir, "entries", len(entries))

	descriptors := make([]*PluginDescriptor, 0, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return descriptors, NewDiscoveryScanError(dir, ctx.Err())
		default:
		}

		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !isExecutableCandidate(path) {
			continue
		}

		desc, err := s.Probe(ctx, path)
		if err != nil {
			s.logger.Debug("Skipping plugin candidate", "executable", path, "error", err)
			continue
		}

		s.logger.Info("Discovered plugin",
			"name", desc.Name,
			"version", desc.Version,
			"kind", desc.Kind.String(),
			"executable", path)
		descriptors = append(descriptors, desc)
	}

	return descriptors, nil
}

// Probe runs the info query against one candidate and builds its
// descriptor. Scan calls it per candidate; tooling calls it directly to
// explain why an executable would be rejected.
func (s *Scanner) Probe(ctx context.Context, path string) (*PluginDescriptor, error) {
	line, err := s.queryInfo(ctx, path)
	if err != nil {
		return nil, err
	}

	var info pluginInfo
	if err := json.Unmarshal([]byte(line), &info); err != nil {
		return nil, NewInvalidMetadataError(path, "output is not a JSON object")
	}
	if info.Name == "" || info.Version == "" || info.Type == "" || info.Description == "" {
		return nil, NewInvalidMetadataError(path, "missing required field (name, version, type, description)")
	}

	kind, ok := ParsePluginKind(info.Type)
	if !ok {
		return nil, NewInvalidMetadataError(path, "unknown plugin type "+info.Type)
	}
	if kind == KindProvider && len(info.Schemes) == 0 && len(info.Extensions) == 0 {
		return nil, NewInvalidMetadataError(path, "provider declares neither schemes nor extensions")
	}

	desc := &PluginDescriptor{
		Path:         path,
		Name:         info.Name,
		Version:      info.Version,
		Description:  info.Description,
		Icon:         info.Icon,
		Kind:         kind,
		Schemes:      info.Schemes,
		Extensions:   info.Extensions,
		DiscoveredAt: timecache.CachedTime(),
	}

	// Scheme-based providers show a connection dialog, so their field
	// definitions are prefetched once per scan. Failure leaves the
	// descriptor with no fields; it is not a reason to reject the
	// plugin.
	if kind == KindProvider && len(desc.Schemes) > 0 {
		invoker := NewEphemeralInvoker(s.infoTimeout, s.logger)
		fields, err := invoker.ProviderDialogFields(ctx, desc)
		if err != nil {
			s.logger.Debug("Dialog field prefetch failed", "executable", path, "error", err)
		} else {
			desc.DialogFields = fields
		}
	}

	return desc, nil
}

// queryInfo invokes the candidate with the info argument, bounded by
// the scanner timeout, and returns the single metadata line. Exactly
// one line of stdout is required; anything else rejects the candidate.
func (s *Scanner) queryInfo(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.infoTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, infoArgument)
	// Stdin and stderr stay nil: both connect to the null device.
	// After the context kills the candidate, stop waiting for the
	// stdout pipe too. A child left behind by the candidate can hold
	// the pipe open well past the kill.
	cmd.WaitDelay = s.infoTimeout

	out, err := cmd.Output()
	if ctx.Err() != nil {
		return "", NewInfoQueryError(path, ctx.Err())
	}
	if err != nil {
		return "", NewInfoQueryError(path, err)
	}

	line := strings.TrimRight(string(out), "\r\n")
	if line == "" {
		return "", NewInvalidMetadataError(path, "empty info output")
	}
	if strings.ContainsAny(line, "\n") {
		return "", NewInvalidMetadataError(path, "info output is not a single line")
	}
	return line, nil
}
