// doc.go: package documentation for the bark plugin runtime
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

// Package barkplugins implements the host side of the Bark extension
// runtime: out-of-process plugins written in any language extend the
// host with virtual filesystem providers, file viewers and status-bar
// widgets, communicating over a line-delimited JSON protocol on
// standard input/output.
//
// Three plugin kinds exist, sharing discovery and transport but with
// different process lifecycles:
//
//   - Provider plugins expose a virtual filesystem (list, read, write,
//     delete, ...) behind a persistent session: one long-lived child
//     process per connection, managed by SessionManager.
//   - Viewer plugins render a file as text lines; each call is a fresh
//     spawn-request-respond-teardown cycle through EphemeralInvoker.
//   - Status plugins produce a short status-bar string, also invoked
//     ephemerally.
//
// Discovery scans a single plugin directory, queries each executable
// candidate with --plugin-info, and builds an immutable Registry
// snapshot that is swapped atomically on every re-scan. Crashing,
// hanging or malformed plugins are skipped or demoted; no plugin
// failure is ever fatal to the host process.
//
// Typical usage:
//
//	rt, err := barkplugins.New(barkplugins.RuntimeConfig{
//	    PluginDir: "/home/user/.config/bark/plugins",
//	}.WithDefaults(), logger)
//	if err != nil {
//	    return err
//	}
//	if err := rt.Rescan(ctx); err != nil {
//	    return err
//	}
//
//	desc := rt.Registry().ProviderByScheme("ftp")
//	session, err := rt.Sessions().Connect(ctx, desc, cfg)
//	if err != nil {
//	    return err
//	}
//	entries, err := session.ListDirectory(ctx, "/")
package barkplugins
