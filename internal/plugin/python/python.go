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

// Package python vendors the packages declared by parts built with the
// snapcraft python plugins.
package python

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/manifest"
	"github.com/vendorize/vendorize/internal/plugin"
	"github.com/vendorize/vendorize/internal/types"
	"github.com/vendorize/vendorize/pkg/printer"
)

const (
	PackagesField     = "python-packages"
	RequirementsField = "requirements"

	// VendoredRequirements is the requirements file written into the
	// source of a vendored part.
	VendoredRequirements = "vendored-requirements.txt"

	// DefaultInterpreter runs pip and probes setup.py.
	DefaultInterpreter = "python3"

	cacheDirName = "python-packages"
	branchMarker = "python_packages"
)

//nolint:gochecknoinits
func init() {
	plugin.Register(New(), "python", "python2", "python3")
}

// Plugin vendors python packages.
type Plugin struct {
	// Interpreter is the python executable.
	Interpreter string
}

// New returns a Plugin using DefaultInterpreter.
func New() *Plugin {
	return &Plugin{Interpreter: DefaultInterpreter}
}

// Vendor gives every package of the part its own branch and points the
// part at a generated requirements file listing those branches.
func (p *Plugin) Vendor(ctx context.Context, pc *plugin.Context) error {
	const op errors.Op = "python.Vendor"
	pr := printer.FromContextOrDie(ctx)

	res, err := p.ResolvePackages(ctx, pc)
	if err != nil {
		return errors.E(op, err)
	}
	if len(res.Packages) == 0 {
		pr.Debugf("part %q declares no python packages", pc.Part.Name)
		return nil
	}

	cacheDir := CacheDir(pc.ProjectDir, pc.Part.Name)
	if err := p.Download(ctx, pc, res.Packages, cacheDir); err != nil {
		return errors.E(op, err)
	}
	if !pc.DryRun {
		if err := UnpackArchives(cacheDir); err != nil {
			return errors.E(op, err)
		}
	}
	refs, err := BranchPerPackage(ctx, pc, res.Packages, cacheDir)
	if err != nil {
		return errors.E(op, err)
	}

	lines := append(refs, res.Includes...)
	if !pc.DryRun {
		reqPath := filepath.Join(pc.SourceDir, VendoredRequirements)
		if err := os.WriteFile(reqPath, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
			return errors.E(op, errors.IO, types.UniquePath(reqPath), err)
		}
	}
	if err := pc.Part.Remove(PackagesField); err != nil {
		return errors.E(op, err)
	}
	if err := pc.Part.Set(RequirementsField, VendoredRequirements); err != nil {
		return errors.E(op, err)
	}
	pr.OptPrintf(printer.NewOpt().PartName(pc.Part.Name), "vendored %d python packages\n", len(refs))
	return nil
}

// CacheDir returns the directory packages of part are downloaded to.
func CacheDir(projectDir, part string) string {
	return filepath.Join(projectDir, "parts", part, cacheDirName)
}

// Package is a resolved package specifier.
type Package struct {
	// Spec is passed to pip as is.
	Spec string
	// Name is the distribution name, which names the branch.
	Name string
}

// Resolution is the outcome of ResolvePackages.
type Resolution struct {
	Packages []Package
	// Includes are "-r <url>" lines for requirement files on allowed
	// hosts, kept in the generated file.
	Includes []string
}

// add appends spec unless a package of the same name was added before.
// It reports whether spec was added.
func (r *Resolution) add(spec string) (bool, error) {
	name, err := PackageName(spec)
	if err != nil {
		return false, err
	}
	for _, pkg := range r.Packages {
		if strings.EqualFold(pkg.Name, name) {
			return false, nil
		}
	}
	r.Packages = append(r.Packages, Package{Spec: spec, Name: name})
	return true, nil
}

var _ plugin.Plugin = &Plugin{}

// partField is a small helper for error messages.
func partField(part *manifest.Part, field string) string {
	return fmt.Sprintf("%s.%s", part.Name, field)
}
