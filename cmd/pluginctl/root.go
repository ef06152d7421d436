// root.go: pluginctl command tree
//
// pluginctl is a developer tool for Bark plugin authors: it runs the
// same discovery, probing and ephemeral invocation paths as the file
// manager, from the command line.
//
// Copyright (c) 2025 The Bark Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	barkplugins "github.com/barkfm/bark-plugins"
)

type rootOptions struct {
	pluginDir string
	timeout   time.Duration
	verbose   bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pluginctl",
		Short:         "Inspect and exercise Bark plugins from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.pluginDir, "plugin-dir", "d", defaultPluginDir(), "directory scanned for plugin executables")
	cmd.PersistentFlags().DurationVarP(&opts.timeout, "timeout", "t", 10*time.Second, "per-call timeout")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log plugin runtime activity")

	cmd.AddCommand(
		newDiscoverCommand(opts),
		newInfoCommand(opts),
		newViewCommand(opts),
		newStatusCommand(opts),
	)
	return cmd
}

func defaultPluginDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/bark/plugins"
	}
	return "."
}

func (o *rootOptions) logger() barkplugins.Logger {
	if o.verbose {
		return newStderrLogger()
	}
	return barkplugins.NewNoOpLogger()
}

func (o *rootOptions) runtime() (*barkplugins.Runtime, error) {
	return barkplugins.New(barkplugins.RuntimeConfig{
		PluginDir:        o.pluginDir,
		DiscoveryTimeout: barkplugins.Duration(o.timeout),
		EphemeralTimeout: barkplugins.Duration(o.timeout),
	}.WithDefaults(), o.logger())
}

// newDiscoverCommand lists every plugin the scan accepts, one line
// each, the same view the file manager builds its registry from.
func newDiscoverCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the plugin directory and list accepted plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}
			if err := rt.Rescan(cmd.Context()); err != nil {
				return err
			}

			registry := rt.Registry()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(registry.All())
			}

			for _, desc := range registry.All() {
				extra := ""
				switch {
				case len(desc.Schemes) > 0:
					extra = " schemes=" + strings.Join(desc.Schemes, ",")
				case len(desc.Extensions) > 0:
					extra = " extensions=" + strings.Join(desc.Extensions, ",")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-20s %-8s %s%s\n",
					desc.Kind, desc.Name, desc.Version, desc.Path, extra)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d plugin(s)\n", registry.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit descriptors as JSON")
	return cmd
}

// newInfoCommand probes one executable directly, bypassing the
// directory scan, and reports why a candidate would be rejected.
func newInfoCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <executable>",
		Short: "Query one executable with --plugin-info and validate its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := barkplugins.NewScanner(opts.timeout, opts.logger())
			desc, err := scanner.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:        %s\n", desc.Name)
			fmt.Fprintf(out, "Version:     %s\n", desc.Version)
			fmt.Fprintf(out, "Kind:        %s\n", desc.Kind)
			fmt.Fprintf(out, "Description: %s\n", desc.Description)
			if desc.Icon != "" {
				fmt.Fprintf(out, "Icon:        %s\n", desc.Icon)
			}
			if len(desc.Schemes) > 0 {
				fmt.Fprintf(out, "Schemes:     %s\n", strings.Join(desc.Schemes, ", "))
			}
			if len(desc.Extensions) > 0 {
				fmt.Fprintf(out, "Extensions:  %s\n", strings.Join(desc.Extensions, ", "))
			}
			for _, field := range desc.DialogFields {
				required := ""
				if field.Required {
					required = " (required)"
				}
				fmt.Fprintf(out, "Field:       %s [%s]%s\n", field.ID, field.Type, required)
			}
			return nil
		},
	}
}

// newViewCommand renders a file through the viewer the selection pass
// picks, exactly as the file manager preview pane would.
func newViewCommand(opts *rootOptions) *cobra.Command {
	var width, height, scroll int

	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Render a file through the best matching viewer plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}
			if err := rt.Rescan(cmd.Context()); err != nil {
				return err
			}

			viewer := rt.Ephemeral().SelectViewer(cmd.Context(), rt.Registry().Viewers(), args[0])
			if viewer == nil {
				return fmt.Errorf("no viewer plugin claims %s", args[0])
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "viewer: %s %s\n", viewer.Name, viewer.Version)

			render, err := rt.Ephemeral().RenderViewer(cmd.Context(), viewer, args[0], width, height, scroll)
			if err != nil {
				return err
			}
			for _, line := range render.Lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if render.TotalLines > len(render.Lines) {
				fmt.Fprintf(cmd.ErrOrStderr(), "(%d of %d lines)\n", len(render.Lines), render.TotalLines)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "render width in columns")
	cmd.Flags().IntVar(&height, "height", 24, "render height in rows")
	cmd.Flags().IntVar(&scroll, "scroll", 0, "first visible line")
	return cmd
}

// newStatusCommand runs every status plugin once against a path.
func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <path>",
		Short: "Render all status plugins for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}
			if err := rt.Rescan(cmd.Context()); err != nil {
				return err
			}

			sc := barkplugins.StatusContext{Path: args[0]}
			if info, err := os.Stat(args[0]); err == nil {
				sc.IsDir = info.IsDir()
				sc.FileSize = info.Size()
			}

			for _, desc := range rt.Registry().StatusPlugins() {
				text, err := rt.Ephemeral().RenderStatus(cmd.Context(), desc, sc)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", desc.Name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", desc.Name, text)
			}
			return nil
		},
	}
}
