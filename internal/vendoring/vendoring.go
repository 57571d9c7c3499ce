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

// Package vendoring drives a run: it rewrites every part of a snapcraft
// project so that all sources and dependencies come from branches of one
// target repository, then pushes those branches.
package vendoring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/vendorize/vendorize/internal/config"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/manifest"
	"github.com/vendorize/vendorize/internal/plugin"
	_ "github.com/vendorize/vendorize/internal/plugin/python"
	"github.com/vendorize/vendorize/internal/repo"
	"github.com/vendorize/vendorize/internal/source"
	"github.com/vendorize/vendorize/internal/types"
	"github.com/vendorize/vendorize/internal/util/report"
	"github.com/vendorize/vendorize/pkg/printer"
)

// Options configures a Processor.
type Options struct {
	// ProjectDir is the root of the snapcraft project.
	ProjectDir string
	// Target is the git+ssh:// repository receiving every branch.
	Target string
	// Hosts is the allow-list used when the manifest has none.
	Hosts []string
	// DefaultBranch receives the rewritten project.
	DefaultBranch string
	Identity      repo.Identity
	DryRun        bool
	// Plugins defaults to plugin.Default().
	Plugins *plugin.Registry
}

// Processor vendors one project. It is not safe for concurrent use.
type Processor struct {
	opts   Options
	repo   *repo.Manager
	groups []report.Group
}

// New validates opts and returns a Processor.
func New(opts Options) (*Processor, error) {
	const op errors.Op = "vendoring.New"
	if len(opts.Hosts) == 0 {
		opts.Hosts = config.DefaultAllowedHosts()
	}
	if opts.DefaultBranch == "" {
		opts.DefaultBranch = config.DefaultBranch
	}
	if opts.Plugins == nil {
		opts.Plugins = plugin.Default()
	}
	if opts.ProjectDir == "" {
		opts.ProjectDir = "."
	}
	abs, err := filepath.Abs(opts.ProjectDir)
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam, types.UniquePath(opts.ProjectDir), err)
	}
	opts.ProjectDir = abs

	m, err := repo.NewManager(repo.Options{
		Target:   opts.Target,
		Identity: opts.Identity,
		DryRun:   opts.DryRun,
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := checkTarget(opts.Target, opts.Hosts); err != nil {
		return nil, errors.E(op, err)
	}
	return &Processor{opts: opts, repo: m}, nil
}

// WorkDir returns the working copy the project is vendored into.
func WorkDir(projectDir string) string {
	return filepath.Join(projectDir, "snap", "vendoring", "src")
}

// Branches returns the branches prepared so far, in creation order.
func (p *Processor) Branches() []repo.Branch {
	return p.repo.Registry().Branches()
}

// Run vendors the project and pushes the result.
func (p *Processor) Run(ctx context.Context) error {
	const op errors.Op = "vendoring.Run"
	pr := printer.FromContextOrDie(ctx)

	relPath, err := manifest.Locate(p.opts.ProjectDir)
	if err != nil {
		return errors.E(op, err)
	}
	m, err := manifest.Load(p.opts.ProjectDir, relPath)
	if err != nil {
		return errors.E(op, err)
	}
	pr.Debugf("loaded %s", relPath)

	hosts, found, err := m.Hosts()
	if err != nil {
		return errors.E(op, err)
	}
	if !found {
		hosts = p.opts.Hosts
	}
	if err := m.SetHosts(hosts); err != nil {
		return errors.E(op, err)
	}
	if err := checkTarget(p.opts.Target, hosts); err != nil {
		return errors.E(op, types.UniquePath(relPath), err)
	}

	workDir := WorkDir(p.opts.ProjectDir)
	if err := p.seed(ctx, workDir); err != nil {
		return errors.E(op, err)
	}

	parts, err := m.Parts()
	if err != nil {
		return errors.E(op, err)
	}
	for i, part := range parts {
		pr.PrintPart(part.Name, i+1, len(parts))
		before := p.repo.Registry().Len()
		if err := p.processPart(ctx, m, part, hosts, workDir); err != nil {
			return errors.E(op, fmt.Errorf("part %q: %w", part.Name, err))
		}
		p.groups = append(p.groups, report.Group{
			Name:     part.Name,
			Branches: p.Branches()[before:],
		})
	}

	if !p.opts.DryRun {
		if err := m.Save(workDir); err != nil {
			return errors.E(op, err)
		}
	}
	if _, err := p.repo.PrepareBranch(ctx, workDir, []string{p.opts.DefaultBranch},
		repo.PrepareOptions{Commit: "Vendor " + m.Name()}); err != nil {
		return errors.E(op, err)
	}

	if p.opts.DryRun {
		return p.report(ctx, m.Name())
	}
	if err := p.repo.UploadAll(ctx); err != nil {
		return errors.E(op, err)
	}
	pr.Printf("pushed %d branches to %s\n", p.repo.Registry().Len(), p.opts.Target)
	return nil
}

// processPart fetches the source of part if it has to be vendored, lets
// its plugin vendor the dependencies and points the part at the branch
// holding the result.
func (p *Processor) processPart(ctx context.Context, m *manifest.Manifest, part *manifest.Part, hosts []string, workDir string) error {
	const op errors.Op = "vendoring.processPart"
	pr := printer.FromContextOrDie(ctx)

	src, err := source.Classify(part.Get(manifest.SourceField), part.Get(manifest.SourceTypeField),
		p.opts.ProjectDir, hosts)
	if err != nil {
		return errors.E(op, err)
	}
	src.Ref = part.Get(manifest.SourceBranchField)
	if src.Ref == "" {
		src.Ref = part.Get(manifest.SourceTagField)
	}

	pl, err := p.opts.Plugins.Lookup(part.Get(manifest.PluginField))
	if err != nil {
		return errors.E(op, err)
	}
	// Plugins rewrite the source, so the result has to be vendored even
	// when the source itself lives on an allowed host.
	if pl != nil {
		src.RequiresVendoring = true
	}

	if src.Kind == source.Unsupported && src.RequiresVendoring {
		return errors.E(op, errors.UnknownSourceKind,
			fmt.Errorf("cannot vendor source %q of type %q", src.Raw, src.Type))
	}

	dir := filepath.Join(p.opts.ProjectDir, "parts", part.Name, "src")
	if src.Kind == source.Local {
		dir = filepath.Join(workDir, src.Raw)
	} else if src.RequiresVendoring && !p.opts.DryRun {
		if err := src.Fetch(ctx, dir, p.repo); err != nil {
			return errors.E(op, err)
		}
	}
	pr.Debugf("%s source %s (%s) in %s", part.Name, src.Raw, src.Kind, dir)

	if pl != nil {
		pc := &plugin.Context{
			Part:         part,
			SourceDir:    dir,
			ProjectDir:   p.opts.ProjectDir,
			Repo:         p.repo,
			AllowedHosts: hosts,
			DryRun:       p.opts.DryRun,
			Prefix:       []string{part.Name},
		}
		if src.Kind == source.Local && (p.opts.DryRun || !exists(dir)) {
			// The working copy is not seeded in a dry run, so declarations
			// come from the project itself.
			pc.ResolveDir = src.LocalPath()
		}
		if err := pl.Vendor(ctx, pc); err != nil {
			return errors.E(op, err)
		}
	}

	if !src.RequiresVendoring {
		return nil
	}
	b, err := p.repo.PrepareBranch(ctx, dir, []string{m.Name(), part.Name}, repo.PrepareOptions{
		Init:   src.Kind != source.Local && !exists(filepath.Join(dir, ".git")),
		Commit: "Vendor " + part.Name,
	})
	if err != nil {
		return errors.E(op, err)
	}
	return rewriteSource(part, p.repo.CloneURL(), b.Name)
}

// rewriteSource points part at branch of the target repository.
func rewriteSource(part *manifest.Part, cloneURL, branch string) error {
	if err := part.Set(manifest.SourceField, cloneURL); err != nil {
		return err
	}
	if part.Has(manifest.SourceTypeField) {
		if err := part.Set(manifest.SourceTypeField, string(source.Git)); err != nil {
			return err
		}
	}
	if err := part.Set(manifest.SourceBranchField, branch); err != nil {
		return err
	}
	return part.Remove(manifest.SourceTagField)
}

func (p *Processor) report(ctx context.Context, name string) error {
	pr := printer.FromContextOrDie(ctx)
	branches := p.Branches()
	pr.Printf("dry run: %d branches would be pushed to %s\n", len(branches), p.opts.Target)
	report.Table(pr.OutStream(), branches)
	return report.Tree(pr.OutStream(), name, p.groups, branches[len(branches)-1:])
}

// checkTarget fails if the host of target is not allowed.
func checkTarget(target string, hosts []string) error {
	host := source.Host(target)
	if !slices.Contains(hosts, host) {
		return errors.E(errors.DisallowedHost,
			fmt.Errorf("target repository host %q is not in %v", host, hosts))
	}
	return nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
