// registry.go: immutable plugin registry snapshot
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package barkplugins

import "strings"

// Registry is a read-only snapshot of one discovery pass: the mapping
// from plugin kind, URI scheme and file extension to plugin
// descriptors.
//
// A Registry is never mutated after construction, so any number of
// callers may read it concurrently without synchronization. A re-scan
// produces a new Registry that the Runtime swaps in atomically; readers
// always see a consistent full snapshot, never a partially rebuilt one.
//
// Viewer and status slices preserve discovery order, which doubles as
// the tie-break when two viewers report equal priority: first
// discovered wins.
type Registry struct {
	all       []*PluginDescriptor
	providers []*PluginDescriptor
	viewers   []*PluginDescriptor
	status    []*PluginDescriptor

	byScheme map[string]*PluginDescriptor
}

// NewRegistry builds a registry from a discovery pass. On duplicate
// scheme declarations the first discovered provider wins.
func NewRegistry(descriptors []*PluginDescriptor) *Registry {
	r := &Registry{
		all:      descriptors,
		byScheme: make(map[string]*PluginDescriptor),
	}

	for _, desc := range descriptors {
		switch desc.Kind {
		case KindProvider:
			r.providers = append(r.providers, desc)
			for _, scheme := range desc.Schemes {
				key := strings.ToLower(scheme)
				if _, taken := r.byScheme[key]; !taken {
					r.byScheme[key] = desc
				}
			}
		case KindViewer:
			r.viewers = append(r.viewers, desc)
		case KindStatus:
			r.status = append(r.status, desc)
		}
	}
	return r
}

// All returns every descriptor in discovery order.
func (r *Registry) All() []*PluginDescriptor {
	return r.all
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	return len(r.all)
}

// Providers returns all provider descriptors in discovery order.
func (r *Registry) Providers() []*PluginDescriptor {
	return r.providers
}

// SchemeProviders returns providers that declare at least one URI
// scheme, the set shown in a connection source selector.
func (r *Registry) SchemeProviders() []*PluginDescriptor {
	out := make([]*PluginDescriptor, 0, len(r.providers))
	for _, desc := range r.providers {
		if len(desc.Schemes) > 0 {
			out = append(out, desc)
		}
	}
	return out
}

// Viewers returns all viewer descriptors in discovery order.
func (r *Registry) Viewers() []*PluginDescriptor {
	return r.viewers
}

// StatusPlugins returns all status descriptors in discovery order.
func (r *Registry) StatusPlugins() []*PluginDescriptor {
	return r.status
}

// ProviderByScheme resolves a URI scheme (case-insensitive) to its
// provider, or nil when no provider handles it.
func (r *Registry) ProviderByScheme(scheme string) *PluginDescriptor {
	return r.byScheme[strings.ToLower(scheme)]
}

// ProviderForFile resolves a file name to the first provider whose
// declared extensions match it, or nil. This drives archive-style
// providers that open files rather than URI schemes.
func (r *Registry) ProviderForFile(name string) *PluginDescriptor {
	for _, desc := range r.providers {
		if desc.HandlesFile(name) {
			return desc
		}
	}
	return nil
}
