// config_watcher.go: hot reload of the runtime configuration file
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"context"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// ConfigWatcher hot-reloads the runtime configuration file. On every
// change it reloads the file, applies the new settings to the Runtime
// and triggers a re-scan, so dropping a plugin into a freshly
// configured directory takes effect without restarting the host.
//
// A change that fails to parse or validate is logged and ignored; the
// runtime keeps its previous configuration. File deletion is likewise
// ignored.
type ConfigWatcher struct {
	runtime *Runtime
	path    string
	watcher *argus.Watcher
	logger  Logger

	mutex   sync.Mutex
	running bool
}

// NewConfigWatcher creates a watcher for the given config file. The
// file does not have to exist yet; the first successful write to it
// will be picked up.
func NewConfigWatcher(runtime *Runtime, path string, logger Logger) *ConfigWatcher {
	return &ConfigWatcher{
		runtime: runtime,
		path:    path,
		logger:  NewLogger(logger),
	}
}

// Start begins watching. It is an error to start a watcher twice.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.running {
		return NewConfigWatcherError("watcher already started", nil)
	}

	watcher := argus.New(argus.Config{
		PollInterval: 2 * time.Second,
		ErrorHandler: func(err error, path string) {
			w.logger.Error("Config watcher error", "path", path, "error", err)
		},
	})

	if err := watcher.Watch(w.path, func(event argus.ChangeEvent) {
		w.handleChange(ctx, event)
	}); err != nil {
		return NewConfigWatcherError("watch registration failed", err)
	}
	if err := watcher.Start(); err != nil {
		return NewConfigWatcherError("watcher start failed", err)
	}

	w.watcher = watcher
	w.running = true
	w.logger.Info("Watching runtime configuration", "path", w.path)
	return nil
}

// Stop halts watching. Safe to call on a watcher that never started.
func (w *ConfigWatcher) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.running {
		return
	}
	if err := w.watcher.Stop(); err != nil {
		w.logger.Warn("Config watcher stop failed", "error", err)
	}
	w.running = false
}

// handleChange reloads and applies the configuration for one change
// event.
func (w *ConfigWatcher) handleChange(ctx context.Context, event argus.ChangeEvent) {
	if event.IsDelete {
		w.logger.Warn("Runtime configuration file removed, keeping current settings", "path", w.path)
		return
	}

	cfg, err := LoadRuntimeConfig(w.path)
	if err != nil {
		w.logger.Error("Ignoring invalid runtime configuration", "path", w.path, "error", err)
		return
	}
	if err := w.runtime.ApplyConfig(cfg); err != nil {
		w.logger.Error("Ignoring inapplicable runtime configuration", "path", w.path, "error", err)
		return
	}

	if err := w.runtime.Rescan(ctx); err != nil {
		w.logger.Warn("Re-scan after config reload failed", "error", err)
	}
}
