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

// Package repo manages the branches a vendoring run commits and pushes to
// the target repository.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/gitutil"
	"github.com/vendorize/vendorize/internal/types"
	"github.com/vendorize/vendorize/pkg/printer"
)

const (
	// TargetScheme is the only scheme accepted for target repositories.
	TargetScheme = "git+ssh://"
	cloneScheme  = "https://"
)

// Identity is the author of every commit made during a run.
type Identity struct {
	Name  string
	Email string
}

func (i Identity) gitConfig() []string {
	return []string{"user.name=" + i.Name, "user.email=" + i.Email}
}

// Branch is one unit of vendored content.
type Branch struct {
	// Name is unique within a run.
	Name string
	// Dir is the working tree committed to the branch.
	Dir string
	// Ref is the clone URL of the target followed by "@" and Name.
	Ref string
}

// BranchName joins path segments into a branch name.
func BranchName(segments ...string) string {
	return strings.Join(segments, "_")
}

// CloneURL returns the anonymous clone URL of a git+ssh:// target.
func CloneURL(target string) string {
	return cloneScheme + strings.TrimPrefix(target, TargetScheme)
}

// Options configures a Manager.
type Options struct {
	// Target is the git+ssh:// URL every branch is pushed to.
	Target   string
	Identity Identity
	// DryRun records branches without running git.
	DryRun bool
}

// PrepareOptions controls what PrepareBranch does besides switching branch.
type PrepareOptions struct {
	// Init runs `git init` in the directory first.
	Init bool
	// Commit is the commit message. Nothing is committed if it is empty.
	Commit string
}

// Manager creates branches in local working trees and pushes them to the
// target repository. It is not safe for concurrent use.
type Manager struct {
	opts     Options
	cloneURL string
	registry *Registry
}

// NewManager returns a Manager for opts.Target.
func NewManager(opts Options) (*Manager, error) {
	const op errors.Op = "repo.NewManager"
	if !strings.HasPrefix(opts.Target, TargetScheme) {
		return nil, errors.E(op, errors.InvalidParam,
			fmt.Errorf("target repository %q must start with %q", opts.Target, TargetScheme))
	}
	return &Manager{
		opts:     opts,
		cloneURL: CloneURL(opts.Target),
		registry: NewRegistry(),
	}, nil
}

// CloneURL returns the anonymous clone URL of the target.
func (m *Manager) CloneURL() string {
	return m.cloneURL
}

// Registry returns the branches prepared so far.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// DryRun reports whether the manager only records branches.
func (m *Manager) DryRun() bool {
	return m.opts.DryRun
}

// Clone clones src into dest, checking out ref if it is not empty.
func (m *Manager) Clone(ctx context.Context, src, dest, ref string) error {
	const op errors.Op = "repo.Clone"
	pr := printer.FromContextOrDie(ctx)
	pr.Debugf("cloning %s into %s", src, dest)
	if m.opts.DryRun {
		return nil
	}

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(parent), err)
	}
	runner, err := m.runner(parent)
	if err != nil {
		return errors.E(op, err)
	}
	args := []string{"--recursive"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, src, dest)
	if _, err := runner.Run(ctx, "clone", args...); err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Repo = src
			e.Ref = ref
		})
		return errors.E(op, types.UniquePath(dest), err)
	}
	return nil
}

// Init creates an empty repository in dir.
func (m *Manager) Init(ctx context.Context, dir string) error {
	const op errors.Op = "repo.Init"
	if m.opts.DryRun {
		return nil
	}
	runner, err := m.runner(dir)
	if err != nil {
		return errors.E(op, err)
	}
	if _, err := runner.Run(ctx, "init"); err != nil {
		return errors.E(op, types.UniquePath(dir), err)
	}
	return nil
}

// PrepareBranch registers the branch named by segments for dir and, unless
// this is a dry run, checks it out and commits the content of dir.
func (m *Manager) PrepareBranch(ctx context.Context, dir string, segments []string, opts PrepareOptions) (Branch, error) {
	const op errors.Op = "repo.PrepareBranch"
	name := BranchName(segments...)
	b := Branch{
		Name: name,
		Dir:  dir,
		Ref:  fmt.Sprintf("%s@%s", m.cloneURL, name),
	}
	if err := m.registry.Register(name, dir); err != nil {
		return b, errors.E(op, err)
	}

	pr := printer.FromContextOrDie(ctx)
	pr.Debugf("preparing branch %s in %s", name, dir)
	if m.opts.DryRun {
		return b, nil
	}

	runner, err := m.runner(dir)
	if err != nil {
		return b, errors.E(op, err)
	}
	if opts.Init {
		if _, err := runner.Run(ctx, "init"); err != nil {
			return b, errors.E(op, types.UniquePath(dir), err)
		}
	}
	if _, err := runner.Run(ctx, "checkout", "-B", name); err != nil {
		return b, errors.E(op, types.UniquePath(dir), err)
	}
	if opts.Commit != "" {
		if _, err := runner.Run(ctx, "add", "--all"); err != nil {
			return b, errors.E(op, types.UniquePath(dir), err)
		}
		if _, err := runner.Run(ctx, "commit", "--allow-empty", "-m", opts.Commit); err != nil {
			return b, errors.E(op, types.UniquePath(dir), err)
		}
	}
	return b, nil
}

// UploadBranch pushes the branch name from dir to the target.
func (m *Manager) UploadBranch(ctx context.Context, dir, name string) error {
	const op errors.Op = "repo.UploadBranch"
	pr := printer.FromContextOrDie(ctx)
	pr.Debugf("uploading %s", name)
	if m.opts.DryRun {
		return nil
	}

	runner, err := m.runner(dir)
	if err != nil {
		return errors.E(op, err)
	}
	if _, err := runner.Run(ctx, "push", "-u", m.opts.Target, name); err != nil {
		gitutil.AmendGitExecError(err, func(e *gitutil.GitExecError) {
			e.Repo = m.opts.Target
			e.Ref = name
		})
		return errors.E(op, types.UniquePath(dir), err)
	}
	return nil
}

// UploadAll pushes every registered branch in registration order.
func (m *Manager) UploadAll(ctx context.Context) error {
	for _, b := range m.registry.Branches() {
		if err := m.UploadBranch(ctx, b.Dir, b.Name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) runner(dir string) (*gitutil.GitLocalRunner, error) {
	runner, err := gitutil.NewLocalGitRunner(dir)
	if err != nil {
		return nil, err
	}
	runner.Config = m.opts.Identity.gitConfig()
	return runner, nil
}
