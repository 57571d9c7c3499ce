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

package vendoring

import (
	"context"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/types"
	"github.com/vendorize/vendorize/pkg/printer"
)

// skipped are never copied into the working copy, relative to the project.
var skipped = []string{".git", "parts", filepath.Join("snap", "vendoring")}

// seed fills an empty working copy with the whole project, so files that
// belong to no part end up on the default branch as well. A project that
// is a git repository is cloned, anything else is copied and initialized.
func (p *Processor) seed(ctx context.Context, workDir string) error {
	const op errors.Op = "vendoring.seed"
	pr := printer.FromContextOrDie(ctx)
	if p.opts.DryRun {
		pr.Debugf("would seed %s", workDir)
		return nil
	}

	entries, err := os.ReadDir(workDir)
	if err == nil && len(entries) > 0 {
		pr.Debugf("%s already seeded", workDir)
		return nil
	}

	if exists(filepath.Join(p.opts.ProjectDir, ".git")) {
		if err := os.RemoveAll(workDir); err != nil {
			return errors.E(op, errors.IO, types.UniquePath(workDir), err)
		}
		return p.repo.Clone(ctx, p.opts.ProjectDir, workDir, "")
	}

	opts := copy.Options{
		Skip: func(_ os.FileInfo, src, _ string) (bool, error) {
			rel, err := filepath.Rel(p.opts.ProjectDir, src)
			if err != nil {
				return false, err
			}
			for _, s := range skipped {
				if rel == s {
					return true, nil
				}
			}
			return false, nil
		},
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
	}
	if err := copy.Copy(p.opts.ProjectDir, workDir, opts); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(workDir), err)
	}
	return p.repo.Init(ctx, workDir)
}
