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
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/manifest"
	"github.com/vendorize/vendorize/internal/plugin"
	"github.com/vendorize/vendorize/internal/repo"
	"github.com/vendorize/vendorize/internal/testutil"
	"github.com/vendorize/vendorize/pkg/printer/fake"
)

const target = "git+ssh://git.launchpad.net/~user/test"

func TestPackageName(t *testing.T) {
	testCases := map[string]string{
		"foo":                                    "foo",
		"foo==1.0":                               "foo",
		"Foo_bar >= 2":                           "Foo_bar",
		"zope.interface[test]":                   "zope.interface",
		"git+https://githubcom/foo/bar#egg=bar":  "bar",
		"https://host/x.tar.gz#egg=baz&subdir=y": "baz",
	}
	for spec, expected := range testCases {
		name, err := PackageName(spec)
		if assert.NoError(t, err, spec) {
			assert.Equal(t, expected, name, spec)
		}
	}

	for _, spec := range []string{
		"git+https://github.com/foo/bar",
		"https://host/foo.tar.gz",
		">=1.0",
	} {
		_, err := PackageName(spec)
		if assert.Error(t, err, spec) {
			assert.True(t, errors.IsKind(err, errors.DependencyResolution), err.Error())
		}
	}
}

func TestReadRequirements(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"requirements.txt": `# pinned for the snap
--index-url https://pypi.example.com/simple
-r other.txt

bar
-e git+https://githubcom/foo/bar#egg=baz
--editable=git+https://githubcom/foo/qux#egg=qux
foo >= 1.0  # lower bound
`})

	specs, err := readRequirements(filepath.Join(dir, "requirements.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bar",
		"git+https://githubcom/foo/bar#egg=baz",
		"git+https://githubcom/foo/qux#egg=qux",
		"foo >= 1.0",
	}, specs)
}

func newPart(t *testing.T, content string) *manifest.Part {
	t.Helper()
	m, err := manifest.Parse("snapcraft.yaml", content)
	require.NoError(t, err)
	parts, err := m.Parts()
	require.NoError(t, err)
	require.Len(t, parts, 1)
	return parts[0]
}

func newContext(t *testing.T, part *manifest.Part, dryRun bool) *plugin.Context {
	t.Helper()
	m, err := repo.NewManager(repo.Options{
		Target:   target,
		Identity: repo.Identity{Name: "Jane Doe", Email: "jane@example.com"},
		DryRun:   dryRun,
	})
	require.NoError(t, err)
	return &plugin.Context{
		Part:         part,
		SourceDir:    t.TempDir(),
		ProjectDir:   t.TempDir(),
		Repo:         m,
		AllowedHosts: []string{"git.launchpad.net"},
		DryRun:       dryRun,
		Prefix:       []string{part.Name},
	}
}

func TestResolvePackages_Precedence(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	part := newPart(t, `name: test
parts:
  test:
    plugin: python
    python-packages: [foo, bar]
    requirements: requirements.txt
`)
	pc := newContext(t, part, true)
	testutil.WriteFiles(t, pc.ProjectDir, map[string]string{"requirements.txt": "bar\nbaz==2.0\n"})
	testutil.WriteFiles(t, pc.SourceDir, map[string]string{
		"pyproject.toml": `[project]
name = "test"
dependencies = ["qux>=1", "foo==3"]
`,
		// never run in a dry run
		"setup.py": "raise SystemExit(1)\n",
	})

	res, err := New().ResolvePackages(ctx, pc)
	require.NoError(t, err)
	assert.Equal(t, []Package{
		{Spec: "foo", Name: "foo"},
		{Spec: "bar", Name: "bar"},
		{Spec: "baz==2.0", Name: "baz"},
		{Spec: "qux>=1", Name: "qux"},
	}, res.Packages)
	assert.Empty(t, res.Includes)
}

func TestResolvePackages_SetupPy(t *testing.T) {
	if _, err := exec.LookPath(DefaultInterpreter); err != nil {
		t.Skip("python3 not available")
	}
	ctx := fake.CtxWithDefaultPrinter()
	part := newPart(t, `name: test
parts:
  test:
    plugin: python
    python-packages: [foo]
    requirements: requirements.txt
`)
	pc := newContext(t, part, false)
	testutil.WriteFiles(t, pc.ProjectDir, map[string]string{"requirements.txt": "bar\nfoo\n"})
	testutil.WriteFiles(t, pc.SourceDir, map[string]string{"setup.py": `from setuptools import setup
print("noise on stdout")
setup(name="test", install_requires=["baz", "bar"])
`})

	res, err := New().ResolvePackages(ctx, pc)
	require.NoError(t, err)
	assert.Equal(t, []Package{
		{Spec: "foo", Name: "foo"},
		{Spec: "bar", Name: "bar"},
		{Spec: "baz", Name: "baz"},
	}, res.Packages)
}

func TestResolvePackages_BrokenSetupPy(t *testing.T) {
	if _, err := exec.LookPath(DefaultInterpreter); err != nil {
		t.Skip("python3 not available")
	}
	ctx := fake.CtxWithDefaultPrinter()
	part := newPart(t, `name: test
parts:
  test:
    plugin: python
`)
	pc := newContext(t, part, false)
	testutil.WriteFiles(t, pc.SourceDir, map[string]string{"setup.py": "this is not python\n"})

	_, err := New().ResolvePackages(ctx, pc)
	if assert.Error(t, err) {
		assert.True(t, errors.IsKind(err, errors.DependencyResolution), err.Error())
		assert.Contains(t, err.Error(), "setup.py")
	}
}

func TestResolvePackages_RemoteRequirements(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()

	part := newPart(t, `name: test
parts:
  test:
    plugin: python
    requirements: https://example.com/requirements.txt
`)
	_, err := New().ResolvePackages(ctx, newContext(t, part, true))
	if assert.Error(t, err) {
		assert.True(t, errors.IsKind(err, errors.UnsupportedExternalReference), err.Error())
	}

	part = newPart(t, `name: test
parts:
  test:
    plugin: python
    python-packages: [foo]
    requirements: https://git.launchpad.net/test/plain/requirements.txt
`)
	res, err := New().ResolvePackages(ctx, newContext(t, part, true))
	require.NoError(t, err)
	assert.Equal(t, []string{"-r https://git.launchpad.net/test/plain/requirements.txt"}, res.Includes)
	assert.Equal(t, []Package{{Spec: "foo", Name: "foo"}}, res.Packages)
}

func TestResolvePackages_MissingEgg(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	part := newPart(t, `name: test
parts:
  test:
    plugin: python
    requirements: requirements.txt
`)
	pc := newContext(t, part, true)
	testutil.WriteFiles(t, pc.ProjectDir, map[string]string{
		"requirements.txt": "-e git+https://githubcom/foo/bar\n",
	})

	_, err := New().ResolvePackages(ctx, pc)
	if assert.Error(t, err) {
		assert.True(t, errors.IsKind(err, errors.DependencyResolution), err.Error())
	}
}

func TestVendor_DryRun(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	part := newPart(t, `name: test
parts:
  test:
    plugin: python
    source: .
    python-packages:
    - foo
    requirements: requirements.txt
`)
	pc := newContext(t, part, true)
	testutil.WriteFiles(t, pc.ProjectDir, map[string]string{
		"requirements.txt": "-e git+https://githubcom/foo/bar#egg=bar\n",
	})

	require.NoError(t, New().Vendor(ctx, pc))

	assert.False(t, part.Has(PackagesField))
	assert.Equal(t, VendoredRequirements, part.Get(RequirementsField))
	assert.NoFileExists(t, filepath.Join(pc.SourceDir, VendoredRequirements))
	assert.NoDirExists(t, CacheDir(pc.ProjectDir, "test"))
	assert.Equal(t, []repo.Branch{
		{Name: "test_python_packages_foo", Dir: filepath.Join(CacheDir(pc.ProjectDir, "test"), "foo")},
		{Name: "test_python_packages_bar", Dir: filepath.Join(CacheDir(pc.ProjectDir, "test"), "bar")},
	}, pc.Repo.Registry().Branches())
}

func TestVendor_NoPackages(t *testing.T) {
	ctx := fake.CtxWithDefaultPrinter()
	part := newPart(t, `name: test
parts:
  test:
    plugin: python
    source: .
`)
	pc := newContext(t, part, true)
	require.NoError(t, New().Vendor(ctx, pc))
	assert.False(t, part.Has(RequirementsField))
	assert.Equal(t, 0, pc.Repo.Registry().Len())
}

// fakePip writes an interpreter stand-in which copies archive into the
// --dest directory and records the requested specifiers in log.
func fakePip(t *testing.T, archive, log string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported")
	}
	script := filepath.Join(t.TempDir(), "python3")
	content := `#!/bin/sh
while [ $# -gt 0 ]; do
  if [ "$1" = "--dest" ]; then dest="$2"; shift; fi
  last="$1"
  shift
done
cp "` + archive + `" "$dest/"
echo "$last" >> "` + log + `"
`
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))
	return script
}

func TestVendor(t *testing.T) {
	testutil.RequireGit(t)
	ctx := fake.CtxWithDefaultPrinter()

	tmp := t.TempDir()
	sdist := filepath.Join(tmp, "pkg-1.0.tar.gz")
	testutil.WriteTar(t, sdist, testutil.Gzip,
		testutil.TarEntry{Name: "pkg-1.0/"},
		testutil.TarEntry{Name: "pkg-1.0/setup.py", Body: "setup()"},
	)
	log := filepath.Join(tmp, "pip.log")

	part := newPart(t, `name: test
parts:
  test:
    plugin: python3
    python-packages: [foo, "bar==1.0"]
`)
	pc := newContext(t, part, false)
	p := &Plugin{Interpreter: fakePip(t, sdist, log)}

	require.NoError(t, p.Vendor(ctx, pc))

	b, err := os.ReadFile(log)
	require.NoError(t, err)
	assert.Equal(t, "foo\nbar==1.0\n", string(b))

	cacheDir := CacheDir(pc.ProjectDir, "test")
	for _, name := range []string{"foo", "bar"} {
		testutil.AssertFile(t, filepath.Join(cacheDir, name, "setup.py"), "setup()")
		assert.NoFileExists(t, filepath.Join(cacheDir, name, "pkg-1.0.tar.gz"))
		assert.Equal(t, "test_python_packages_"+name,
			testutil.Git(t, filepath.Join(cacheDir, name), "branch", "--show-current"))
	}

	testutil.AssertFile(t, filepath.Join(pc.SourceDir, VendoredRequirements), strings.Join([]string{
		"https://git.launchpad.net/~user/test@test_python_packages_foo",
		"https://git.launchpad.net/~user/test@test_python_packages_bar",
	}, "\n")+"\n")
	assert.Equal(t, VendoredRequirements, part.Get(RequirementsField))
	assert.False(t, part.Has(PackagesField))

	// a second run downloads nothing
	require.NoError(t, p.Download(ctx, pc, []Package{{Spec: "foo", Name: "foo"}}, cacheDir))
	b, err = os.ReadFile(log)
	require.NoError(t, err)
	assert.Equal(t, "foo\nbar==1.0\n", string(b))
}

func TestDownload_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported")
	}
	var errOut bytes.Buffer
	ctx := fake.CtxWithPrinter(io.Discard, &errOut)
	script := filepath.Join(t.TempDir(), "python3")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
while [ $# -gt 0 ]; do
  if [ "$1" = "--dest" ]; then dest="$2"; shift; fi
  last="$1"
  shift
done
if [ "$last" = "missing" ]; then
  echo 'no such package' >&2
  exit 1
fi
echo "$last" > "$dest/$last.txt"
`), 0755))

	part := newPart(t, `name: test
parts:
  test:
    plugin: python
`)
	pc := newContext(t, part, false)
	cacheDir := filepath.Join(pc.ProjectDir, "cache")
	err := (&Plugin{Interpreter: script}).Download(ctx, pc, []Package{
		{Spec: "missing", Name: "missing"},
		{Spec: "present", Name: "present"},
	}, cacheDir)
	require.NoError(t, err)

	assert.Contains(t, errOut.String(), "missing")
	assert.Contains(t, errOut.String(), "no such package")
	testutil.AssertFile(t, filepath.Join(cacheDir, "present", "present.txt"), "present\n")
	assert.DirExists(t, filepath.Join(cacheDir, "missing"))
	assert.NoFileExists(t, filepath.Join(cacheDir, "missing", "missing.txt"))
}
