// Copyright 2026 The vendorize Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package plugin defines how dependency plugins vendor the packages a part
// declares, and keeps the registry of known plugins.
package plugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/manifest"
	"github.com/vendorize/vendorize/internal/repo"
)

// Context is everything a plugin may use while vendoring one part.
type Context struct {
	Part *manifest.Part
	// SourceDir holds the content of the part. It may not exist in a dry run.
	SourceDir string
	// ResolveDir is where dependency declarations are read from when it
	// differs from SourceDir.
	ResolveDir string
	ProjectDir string
	Repo       *repo.Manager
	// AllowedHosts may be referenced without vendoring.
	AllowedHosts []string
	DryRun       bool
	// Prefix is prepended to the name of every branch the plugin creates.
	Prefix []string
}

// DeclarationsDir returns the directory dependency declarations are read
// from.
func (c *Context) DeclarationsDir() string {
	if c.ResolveDir != "" {
		return c.ResolveDir
	}
	return c.SourceDir
}

// Plugin vendors the dependencies of a part and rewrites the part to use
// the vendored copies.
type Plugin interface {
	Vendor(ctx context.Context, pc *Context) error
}

// Registry maps plugin names of the manifest to plugins.
type Registry struct {
	plugins map[string]Plugin
	ignored map[string]bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		ignored: make(map[string]bool),
	}
}

// Register adds p under every name.
func (r *Registry) Register(p Plugin, names ...string) {
	for _, n := range names {
		r.plugins[n] = p
	}
}

// Ignore marks names as plugins that need no dependency vendoring.
func (r *Registry) Ignore(names ...string) {
	for _, n := range names {
		r.ignored[n] = true
	}
}

// Lookup returns the plugin registered for name. It returns nil without
// an error for ignored names.
func (r *Registry) Lookup(name string) (Plugin, error) {
	const op errors.Op = "plugin.Lookup"
	if p, found := r.plugins[name]; found {
		return p, nil
	}
	if r.ignored[name] {
		return nil, nil
	}
	if name == "" {
		return nil, errors.E(op, errors.UnsupportedPluginKind, fmt.Errorf("part has no plugin"))
	}
	return nil, errors.E(op, errors.UnsupportedPluginKind,
		fmt.Errorf("no vendoring for plugin %q, supported plugins are %v", name, r.Names()))
}

// Names returns the sorted names of all registered and ignored plugins.
func (r *Registry) Names() []string {
	var names []string
	for n := range r.plugins {
		names = append(names, n)
	}
	for n := range r.ignored {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Ignore("copy", "dump", "nil")
	return r
}()

// Default returns the registry plugin packages register themselves with.
func Default() *Registry {
	return defaultRegistry
}

// Register adds p to the default registry.
func Register(p Plugin, names ...string) {
	defaultRegistry.Register(p, names...)
}

// Lookup looks name up in the default registry.
func Lookup(name string) (Plugin, error) {
	return defaultRegistry.Lookup(name)
}
