// ephemeral.go: one-shot plugin invocation for viewer and status plugins
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import (
	"context"
	"sync"
	"time"
)

// DefaultCallDeadline bounds a whole ephemeral call: spawn, request,
// response and teardown.
const DefaultCallDeadline = 10 * time.Second

// EphemeralInvoker runs the spawn-request-respond-teardown cycle used
// by viewer and status plugins, and by the pre-connection provider
// calls (dialog fields, config validation).
//
// Every call spawns a fresh process, sends exactly one request line,
// reads exactly one response line, and kills the process regardless of
// outcome. The child is expected to exit on end-of-input by itself,
// but teardown does not depend on that. A deadline covers the whole
// call; exceeding it force-kills the process and yields a transport
// timeout.
//
// Invocations against different plugins are independent and may run
// concurrently; each owns its own process.
type EphemeralInvoker struct {
	deadline time.Duration
	logger   Logger
}

// NewEphemeralInvoker creates an invoker. A zero deadline selects
// DefaultCallDeadline.
func NewEphemeralInvoker(deadline time.Duration, logger Logger) *EphemeralInvoker {
	if deadline <= 0 {
		deadline = DefaultCallDeadline
	}
	return &EphemeralInvoker{
		deadline: deadline,
		logger:   NewLogger(logger),
	}
}

// Invoke performs one complete ephemeral round trip against the
// executable and returns the raw response line.
func (e *EphemeralInvoker) Invoke(ctx context.Context, path string, request []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	transport, err := Spawn(path, e.logger)
	if err != nil {
		return "", err
	}
	defer transport.Kill()

	if err := transport.Send(request); err != nil {
		return "", err
	}
	return transport.Receive(ctx)
}

// ProviderDialogFields asks a provider for its connection dialog
// definition. This runs before any session exists, so it is ephemeral.
func (e *EphemeralInvoker) ProviderDialogFields(ctx context.Context, desc *PluginDescriptor) ([]DialogField, error) {
	request, err := EncodeGetDialogFields()
	if err != nil {
		return nil, err
	}
	line, err := e.Invoke(ctx, desc.Path, request)
	if err != nil {
		return nil, err
	}
	return DecodeDialogFields(line)
}

// ProviderValidateConfig asks a provider to validate a configuration
// without connecting.
func (e *EphemeralInvoker) ProviderValidateConfig(ctx context.Context, desc *PluginDescriptor, cfg ProviderConfig) error {
	request, err := EncodeValidateConfig(cfg)
	if err != nil {
		return err
	}
	line, err := e.Invoke(ctx, desc.Path, request)
	if err != nil {
		return err
	}
	return DecodeValidateConfig(line)
}

// ProbeViewer asks one viewer whether it can handle the file. Any
// failure counts as "cannot handle": a broken viewer is excluded from
// selection for this pass, never surfaced.
func (e *EphemeralInvoker) ProbeViewer(ctx context.Context, desc *PluginDescriptor, path string) ViewerProbe {
	request, err := EncodeViewerCanHandle(path)
	if err != nil {
		return ViewerProbe{}
	}
	line, err := e.Invoke(ctx, desc.Path, request)
	if err != nil {
		e.logger.Debug("Viewer probe failed", "plugin", desc.Name, "error", err)
		return ViewerProbe{}
	}
	probe, err := DecodeViewerProbe(line)
	if err != nil {
		e.logger.Debug("Viewer probe malformed", "plugin", desc.Name, "error", err)
		return ViewerProbe{}
	}
	return probe
}

// SelectViewer probes every viewer concurrently and picks the one that
// claims the file with the highest priority. Ties go to the earliest
// discovered viewer. Returns nil when no viewer claims the file, in
// which case the caller falls back to the built-in viewer.
func (e *EphemeralInvoker) SelectViewer(ctx context.Context, viewers []*PluginDescriptor, path string) *PluginDescriptor {
	if len(viewers) == 0 {
		return nil
	}

	probes := make([]ViewerProbe, len(viewers))
	var wg sync.WaitGroup
	for i, desc := range viewers {
		wg.Add(1)
		go func(i int, desc *PluginDescriptor) {
			defer wg.Done()
			probes[i] = e.ProbeViewer(ctx, desc, path)
		}(i, desc)
	}
	wg.Wait()

	best := -1
	for i, probe := range probes {
		if !probe.CanHandle {
			continue
		}
		if best == -1 || probe.Priority > probes[best].Priority {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	return viewers[best]
}

// RenderViewer asks a viewer for one rendered page. Viewers are
// stateless across renders: every scroll or resize is a fresh call
// carrying the full path, dimensions and scroll offset.
func (e *EphemeralInvoker) RenderViewer(ctx context.Context, desc *PluginDescriptor, path string, width, height, scroll int) (ViewerRender, error) {
	request, err := EncodeViewerRender(path, width, height, scroll)
	if err != nil {
		return ViewerRender{}, err
	}
	line, err := e.Invoke(ctx, desc.Path, request)
	if err != nil {
		return ViewerRender{}, err
	}
	return DecodeViewerRender(line)
}

// RenderStatus asks a status plugin for its status-bar text for this
// tick. A failing or slow plugin returns an error and simply
// contributes no text; the deadline bounds the worst-case stall.
func (e *EphemeralInvoker) RenderStatus(ctx context.Context, desc *PluginDescriptor, sc StatusContext) (string, error) {
	request, err := EncodeStatusRender(sc)
	if err != nil {
		return "", err
	}
	line, err := e.Invoke(ctx, desc.Path, request)
	if err != nil {
		return "", err
	}
	return DecodeStatusText(line)
}
