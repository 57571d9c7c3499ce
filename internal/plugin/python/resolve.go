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
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/shlex"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/plugin"
	"github.com/vendorize/vendorize/internal/source"
	"github.com/vendorize/vendorize/internal/types"
	"github.com/vendorize/vendorize/pkg/printer"
)

var nameRE = regexp.MustCompile(`^[A-Za-z0-9][-A-Za-z0-9._]*`)

// PackageName returns the distribution name of a pip specifier. URL style
// specifiers must name the package with an #egg= fragment.
func PackageName(spec string) (string, error) {
	const op errors.Op = "python.PackageName"
	if _, egg, found := strings.Cut(spec, "#egg="); found {
		name, _, _ := strings.Cut(egg, "&")
		if name != "" {
			return name, nil
		}
	}
	if isURL(spec) {
		return "", errors.E(op, errors.DependencyResolution,
			fmt.Errorf("unknown package syntax %q", spec))
	}
	name := nameRE.FindString(spec)
	if name == "" {
		return "", errors.E(op, errors.DependencyResolution,
			fmt.Errorf("unknown package syntax %q", spec))
	}
	return name, nil
}

func isURL(spec string) bool {
	return strings.Contains(spec, "://") || strings.HasPrefix(spec, "git+")
}

// ResolvePackages collects the packages of the part in order: the
// python-packages list, the requirements files, install_requires of
// setup.py and the dependencies of pyproject.toml. Later duplicates of a
// package name are dropped.
func (p *Plugin) ResolvePackages(ctx context.Context, pc *plugin.Context) (*Resolution, error) {
	const op errors.Op = "python.ResolvePackages"
	pr := printer.FromContextOrDie(ctx)
	res := &Resolution{}

	add := func(origin string, specs []string) error {
		for _, spec := range specs {
			added, err := res.add(spec)
			if err != nil {
				return errors.E(op, err)
			}
			if !added {
				pr.Debugf("%s: skipping %q, the package is already declared", origin, spec)
			}
		}
		return nil
	}

	declared, err := pc.Part.StringList(PackagesField)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := add(partField(pc.Part, PackagesField), declared); err != nil {
		return nil, err
	}

	requirements, err := pc.Part.Values(RequirementsField)
	if err != nil {
		return nil, errors.E(op, err)
	}
	for _, r := range requirements {
		if host := source.Host(r); host != "" {
			if !slices.Contains(pc.AllowedHosts, host) {
				return nil, errors.E(op, errors.UnsupportedExternalReference,
					fmt.Errorf("external requirements %q on %q are not supported", r, host))
			}
			res.Includes = append(res.Includes, "-r "+r)
			continue
		}
		specs, err := readRequirements(filepath.Join(pc.ProjectDir, r))
		if err != nil {
			return nil, errors.E(op, err)
		}
		if err := add(r, specs); err != nil {
			return nil, err
		}
	}

	dir := pc.DeclarationsDir()
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return res, nil
	}

	if pc.DryRun {
		pr.Debugf("dry run: not probing setup.py of part %q", pc.Part.Name)
	} else {
		specs, err := p.installRequires(ctx, dir)
		if err != nil {
			return nil, errors.E(op, err)
		}
		if err := add("setup.py", specs); err != nil {
			return nil, err
		}
	}

	specs, err := projectDependencies(dir)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := add("pyproject.toml", specs); err != nil {
		return nil, err
	}
	return res, nil
}

// readRequirements returns the package specifiers of a requirements file.
// Comments, blank lines and option lines are skipped; the editable flag
// is dropped.
func readRequirements(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.E(errors.IO, types.UniquePath(path), err)
	}
	var specs []string
	for i, line := range strings.Split(string(b), "\n") {
		tokens, err := shlex.Split(line)
		if err != nil {
			return nil, errors.E(errors.DependencyResolution, types.UniquePath(path),
				fmt.Errorf("line %d: %w", i+1, err))
		}
		if len(tokens) == 0 {
			continue
		}
		switch {
		case tokens[0] == "-e" || tokens[0] == "--editable":
			if len(tokens) > 1 {
				specs = append(specs, tokens[1])
			}
		case strings.HasPrefix(tokens[0], "--editable="):
			specs = append(specs, strings.TrimPrefix(tokens[0], "--editable="))
		case strings.HasPrefix(tokens[0], "-"):
			// -r, -c, --index-url and friends
		default:
			specs = append(specs, stripComment(line))
		}
	}
	return specs, nil
}

// stripComment removes a trailing comment, which pip recognizes by a "#"
// at the start of the line or after whitespace.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t') {
			line = line[:i]
			break
		}
	}
	return strings.TrimSpace(line)
}

// setupProbe runs setup.py with setup() replaced by a recorder which
// prints its keyword arguments and exits before anything is built.
const setupProbe = `
import json, sys, types

def setup(*args, **kwargs):
    requires = kwargs.get("install_requires") or []
    if isinstance(requires, str):
        requires = requires.splitlines()
    sys.stdout.write("\n" + MARKER + json.dumps([str(r) for r in requires]) + "\n")
    sys.stdout.flush()
    sys.exit(0)

try:
    import setuptools
except ImportError:
    setuptools = types.ModuleType("setuptools")
    setuptools.find_packages = lambda *a, **k: []
    sys.modules["setuptools"] = setuptools
setuptools.setup = setup
try:
    import distutils.core
    distutils.core.setup = setup
except ImportError:
    pass

sys.argv = ["setup.py", "--version"]
sys.path.insert(0, ".")
with open("setup.py") as f:
    code = compile(f.read(), "setup.py", "exec")
exec(code, {"__name__": "__main__", "__file__": "setup.py"})
sys.stdout.write("\n" + MARKER + "[]\n")
`

const probeMarker = "VENDORIZE-INSTALL-REQUIRES:"

// installRequires returns install_requires of setup.py in dir, or nothing
// if there is no setup.py.
func (p *Plugin) installRequires(ctx context.Context, dir string) ([]string, error) {
	const op errors.Op = "python.installRequires"
	setupPy := filepath.Join(dir, "setup.py")
	if _, err := os.Stat(setupPy); err != nil {
		return nil, nil
	}

	script := fmt.Sprintf("MARKER = %q\n%s", probeMarker, setupProbe)
	cmd := exec.CommandContext(ctx, p.Interpreter, "-c", script)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.E(op, errors.DependencyResolution, types.UniquePath(setupPy),
			fmt.Errorf("failed to parse setup.py: %w: %s", err, strings.TrimSpace(stderr.String())))
	}

	lines := strings.Split(stdout.String(), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if encoded, found := strings.CutPrefix(lines[i], probeMarker); found {
			var requires []string
			if err := json.Unmarshal([]byte(encoded), &requires); err != nil {
				return nil, errors.E(op, errors.DependencyResolution, types.UniquePath(setupPy), err)
			}
			return requires, nil
		}
	}
	return nil, errors.E(op, errors.DependencyResolution, types.UniquePath(setupPy),
		fmt.Errorf("failed to parse setup.py: setup() was not called"))
}

type pyproject struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

// projectDependencies returns project.dependencies of pyproject.toml in
// dir, or nothing if there is no pyproject.toml.
func projectDependencies(dir string) ([]string, error) {
	const op errors.Op = "python.projectDependencies"
	p := filepath.Join(dir, "pyproject.toml")
	if _, err := os.Stat(p); err != nil {
		return nil, nil
	}
	var doc pyproject
	if _, err := toml.DecodeFile(p, &doc); err != nil {
		return nil, errors.E(op, errors.DependencyResolution, types.UniquePath(p), err)
	}
	return doc.Project.Dependencies, nil
}
