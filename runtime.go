// runtime.go: top-level plugin runtime tying discovery, sessions and
// ephemeral invocation together
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"context"
	"sync"
	"sync/atomic"
)

// Runtime is the host-facing entry point. It owns the current Registry
// snapshot, the SessionManager for provider connections and the
// EphemeralInvoker for viewer and status calls.
//
// The registry pointer is swapped atomically on every Rescan, so UI
// code may read it at any time without locking. Sessions established
// against descriptors from an older snapshot keep working; a re-scan
// never tears down live connections.
type Runtime struct {
	mu     sync.Mutex
	config RuntimeConfig

	registry  atomic.Pointer[Registry]
	scanner   *Scanner
	sessions  *SessionManager
	ephemeral *EphemeralInvoker
	logger    Logger
}

// New creates a runtime from a validated configuration. No discovery
// happens yet; call Rescan to populate the registry.
func New(config RuntimeConfig, logger Logger) (*Runtime, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger = NewLogger(logger)
	rt := &Runtime{
		config:    config,
		scanner:   NewScanner(config.DiscoveryTimeout.Std(), logger),
		sessions:  NewSessionManager(config.CallTimeout.Std(), logger),
		ephemeral: NewEphemeralInvoker(config.EphemeralTimeout.Std(), logger),
		logger:    logger,
	}
	rt.registry.Store(NewRegistry(nil))
	return rt, nil
}

// Config returns the current configuration.
func (rt *Runtime) Config() RuntimeConfig {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.config
}

// Rescan runs a full discovery pass over the plugin directory and
// atomically replaces the registry snapshot. On scan failure the
// previous snapshot stays in place.
func (rt *Runtime) Rescan(ctx context.Context) error {
	rt.mu.Lock()
	dir := rt.config.PluginDir
	scanner := rt.scanner
	rt.mu.Unlock()

	descriptors, err := scanner.Scan(ctx, dir)
	if err != nil {
		return err
	}

	registry := NewRegistry(descriptors)
	rt.registry.Store(registry)
	rt.logger.Info("Plugin registry updated", "plugins", registry.Len())
	return nil
}

// Registry returns the current snapshot. It is never nil; before the
// first Rescan it is empty.
func (rt *Runtime) Registry() *Registry {
	return rt.registry.Load()
}

// Sessions returns the provider session manager.
func (rt *Runtime) Sessions() *SessionManager {
	return rt.sessions
}

// Ephemeral returns the invoker for viewer and status plugins.
func (rt *Runtime) Ephemeral() *EphemeralInvoker {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.ephemeral
}

// ApplyConfig installs a new configuration at runtime, rebuilding the
// scanner and ephemeral invoker with the new timeouts. Established
// sessions keep their original call timeout; new connections pick up
// the new one via a fresh session manager only on restart, so the
// session manager is left untouched here.
func (rt *Runtime) ApplyConfig(config RuntimeConfig) error {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.config = config
	rt.scanner = NewScanner(config.DiscoveryTimeout.Std(), rt.logger)
	rt.ephemeral = NewEphemeralInvoker(config.EphemeralTimeout.Std(), rt.logger)
	rt.logger.Info("Runtime configuration applied", "plugin_dir", config.PluginDir)
	return nil
}

// EvictIdleSessions applies the configured idle policy once. Callers
// run it on a timer of their choosing.
func (rt *Runtime) EvictIdleSessions(ctx context.Context) int {
	rt.mu.Lock()
	maxIdle := rt.config.SessionMaxIdle.Std()
	rt.mu.Unlock()
	return rt.sessions.EvictIdle(ctx, maxIdle)
}

// Close disconnects every provider session. The registry stays
// readable; ephemeral invocations after Close still work since they
// own their processes per call.
func (rt *Runtime) Close(ctx context.Context) {
	rt.sessions.CloseAll(ctx)
}
