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

// Package cmdvendor contains the vendor command
package cmdvendor

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vendorize/vendorize/internal/config"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/repo"
	"github.com/vendorize/vendorize/internal/types"
	"github.com/vendorize/vendorize/internal/util/cmdutil"
	"github.com/vendorize/vendorize/internal/vendoring"
	"github.com/vendorize/vendorize/pkg/printer"
)

const (
	short = "Vendor every source and dependency of a snapcraft project"
	long  = `
Rewrites the snapcraft.yaml of PROJECT_DIR so that every part whose source
lives outside the allowed hosts, and every dependency declared by a
supported plugin, is built from a branch of TARGET_REPOSITORY. The
branches are created locally and pushed, together with the rewritten
project on the default branch.

Commits are authored by REAL_NAME <EMAIL_ADDRESS>, falling back to the
git user.name and user.email settings.

Args:
  TARGET_REPOSITORY:
    git+ssh:// URL of the repository receiving the branches.
  PROJECT_DIR:
    Directory holding the snapcraft project. Defaults to the current
    directory.
`
	example = `
  # show the branches that would be created
  $ vendorize --dry-run git+ssh://git.launchpad.net/~me/my-snap

  # vendor the project in ./my-snap, allowing an extra host
  $ vendorize -H github.com git+ssh://git.launchpad.net/~me/my-snap ./my-snap
`
)

// flagKeys maps flags to the config keys they override.
var flagKeys = map[string]string{
	"host":           config.HostsKey,
	"default-branch": config.DefaultBranchKey,
}

// NewRunner returns a command runner
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:     "vendorize TARGET_REPOSITORY [PROJECT_DIR]",
		Args:    cobra.RangeArgs(1, 2),
		Short:   short,
		Long:    short + "\n" + long,
		Example: example,
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}
	cmdutil.FixDocs("vendorize", parent, c)
	r.Command = c

	c.Flags().BoolVarP(&r.DryRun, "dry-run", "n", false,
		"resolve everything and list the branches without changing anything")
	c.Flags().BoolVarP(&r.Debug, "debug", "d", false,
		"log every step")
	c.Flags().StringSliceVarP(&r.Hosts, "host", "H", nil,
		"host that may be referenced without vendoring, repeatable (default: launchpad and ubuntu hosts)")
	c.Flags().StringVar(&r.DefaultBranch, "default-branch", config.DefaultBranch,
		"branch receiving the rewritten project")
	c.Flags().StringVar(&r.ConfigFile, "config", "",
		"config file (default: $"+config.ConfigFileEnv+" or vendorize.yaml)")
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	DryRun        bool
	Debug         bool
	Hosts         []string
	DefaultBranch string
	ConfigFile    string

	Options vendoring.Options
}

func (r *Runner) preRunE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdvendor.preRunE"

	v, err := config.New(r.ConfigFile)
	if err != nil {
		return errors.E(op, err)
	}
	// Flags given on the command line win over the environment and the
	// config file.
	c.Flags().Visit(func(f *pflag.Flag) {
		if key, found := flagKeys[f.Name]; found {
			_ = v.BindPFlag(key, f)
		}
	})
	cfg, err := config.Load(v)
	if err != nil {
		return errors.E(op, err)
	}

	projectDir := "."
	if len(args) > 1 {
		projectDir = args[1]
	}
	if fi, err := os.Stat(projectDir); err != nil || !fi.IsDir() {
		return errors.E(op, errors.InvalidParam, types.UniquePath(projectDir),
			"project directory does not exist")
	}

	var identity repo.Identity
	if !r.DryRun {
		identity, err = config.ResolveIdentity(r.ctx, cfg, projectDir)
		if err != nil {
			return errors.E(op, err)
		}
	}

	r.Options = vendoring.Options{
		ProjectDir:    projectDir,
		Target:        args[0],
		Hosts:         cfg.Hosts,
		DefaultBranch: cfg.DefaultBranch,
		Identity:      identity,
		DryRun:        r.DryRun,
	}
	return nil
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdvendor.runE"
	ctx := r.ctx
	if r.Debug {
		pr := printer.FromContextOrDie(ctx)
		ctx = printer.WithContext(ctx, printer.NewWithLevel(pr.OutStream(), pr.ErrStream(), log.DebugLevel))
	}

	p, err := vendoring.New(r.Options)
	if err != nil {
		return errors.E(op, err)
	}
	if err := p.Run(ctx); err != nil {
		return errors.E(op, types.UniquePath(r.Options.ProjectDir), err)
	}
	return nil
}
