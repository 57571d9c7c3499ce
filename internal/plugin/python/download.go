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

package python

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vendorize/vendorize/internal/archive"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/plugin"
	"github.com/vendorize/vendorize/internal/repo"
	"github.com/vendorize/vendorize/internal/types"
	"github.com/vendorize/vendorize/pkg/printer"
)

// Download fetches every package into its own directory below cacheDir,
// one pip invocation per package. Packages whose directory already has
// content are not downloaded again. A failing download is reported and
// does not stop the others.
func (p *Plugin) Download(ctx context.Context, pc *plugin.Context, packages []Package, cacheDir string) error {
	const op errors.Op = "python.Download"
	pr := printer.FromContextOrDie(ctx)
	if pc.DryRun {
		return nil
	}

	for _, pkg := range packages {
		dir := filepath.Join(cacheDir, pkg.Name)
		if hasContent(dir) {
			pr.Debugf("%s already downloaded", pkg.Name)
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.E(op, errors.IO, types.UniquePath(dir), err)
		}

		pr.Debugf("downloading %s", pkg.Spec)
		cmd := exec.CommandContext(ctx, p.Interpreter, "-m", "pip", "download",
			"--no-deps", "--dest", dir, pkg.Spec)
		cmd.Dir = pc.ProjectDir
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return errors.E(op, ctx.Err())
			}
			// A package that fails to build still gets its branch, the
			// others are fetched regardless.
			pr.Warnf("pip download %q failed: %v: %s", pkg.Spec, err, strings.TrimSpace(out.String()))
		}
	}
	return nil
}

// UnpackArchives replaces every tar-family file in the package
// directories below cacheDir with its content. Wheels and directories
// are left as they are.
func UnpackArchives(cacheDir string) error {
	const op errors.Op = "python.UnpackArchives"
	packages, err := os.ReadDir(cacheDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.E(op, errors.IO, types.UniquePath(cacheDir), err)
	}

	for _, pkg := range packages {
		if !pkg.IsDir() {
			continue
		}
		dir := filepath.Join(cacheDir, pkg.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return errors.E(op, errors.IO, types.UniquePath(dir), err)
		}
		for _, e := range entries {
			if e.IsDir() || !archive.IsArchive(e.Name()) {
				continue
			}
			archivePath := filepath.Join(dir, e.Name())
			if err := archive.Extract(archivePath, dir); err != nil {
				return errors.E(op, err)
			}
			if err := os.Remove(archivePath); err != nil {
				return errors.E(op, errors.IO, types.UniquePath(archivePath), err)
			}
		}
	}
	return nil
}

// BranchPerPackage commits every package directory to its own branch
// and returns the references of those branches in package order.
func BranchPerPackage(ctx context.Context, pc *plugin.Context, packages []Package, cacheDir string) ([]string, error) {
	const op errors.Op = "python.BranchPerPackage"
	var refs []string
	for _, pkg := range packages {
		segments := append(append([]string{}, pc.Prefix...), branchMarker, pkg.Name)
		b, err := pc.Repo.PrepareBranch(ctx, filepath.Join(cacheDir, pkg.Name), segments, repo.PrepareOptions{
			Init:   true,
			Commit: fmt.Sprintf("Vendor %s", pkg.Name),
		})
		if err != nil {
			return nil, errors.E(op, err)
		}
		refs = append(refs, b.Ref)
	}
	return refs, nil
}

func hasContent(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
