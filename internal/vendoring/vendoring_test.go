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
	"bytes"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/plugin/python"
	"github.com/vendorize/vendorize/internal/repo"
	"github.com/vendorize/vendorize/internal/testutil"
	"github.com/vendorize/vendorize/pkg/printer/fake"
)

const target = "git+ssh://git.launchpad.net/~user/test"

var identity = repo.Identity{Name: "Jane Doe", Email: "jane@example.com"}

func TestNew(t *testing.T) {
	testCases := map[string]struct {
		target string
		hosts  []string
		kind   errors.Kind
	}{
		"default hosts": {
			target: target,
		},
		"not ssh": {
			target: "https://git.launchpad.net/~user/test",
			kind:   errors.InvalidParam,
		},
		"host not allowed": {
			target: "git+ssh://github.com/user/test",
			kind:   errors.DisallowedHost,
		},
		"custom hosts": {
			target: "git+ssh://git.example.com/test",
			hosts:  []string{"git.example.com"},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			_, err := New(Options{ProjectDir: t.TempDir(), Target: tc.target, Hosts: tc.hosts})
			if tc.kind == 0 {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.True(t, errors.IsKind(err, tc.kind), err.Error())
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	testCases := map[string]struct {
		files map[string]string
		kind  errors.Kind
	}{
		"no manifest": {
			files: map[string]string{"README": "hello"},
			kind:  errors.ManifestNotFound,
		},
		"target not in manifest hosts": {
			files: map[string]string{"snapcraft.yaml": `name: test
vendoring: [github.com]
parts: {}
`},
			kind: errors.DisallowedHost,
		},
		"unknown plugin": {
			files: map[string]string{"snap/snapcraft.yaml": `name: test
parts:
  test:
    plugin: rust
`},
			kind: errors.UnsupportedPluginKind,
		},
		"missing plugin": {
			files: map[string]string{".snapcraft.yaml": `name: test
parts:
  test:
    source: .
`},
			kind: errors.UnsupportedPluginKind,
		},
		"unknown source": {
			files: map[string]string{"snapcraft.yaml": `name: test
parts:
  test:
    plugin: nil
    source: https://example.com/something
`},
			kind: errors.UnknownSourceKind,
		},
		"unsupported source type": {
			files: map[string]string{"snapcraft.yaml": `name: test
parts:
  test:
    plugin: nil
    source: https://example.com/pkg.deb
    source-type: deb
`},
			kind: errors.UnknownSourceKind,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			dir := t.TempDir()
			testutil.WriteFiles(t, dir, tc.files)
			p, err := New(Options{ProjectDir: dir, Target: target, DryRun: true})
			require.NoError(t, err)

			err = p.Run(fake.CtxWithDefaultPrinter())
			if assert.Error(t, err) {
				assert.True(t, errors.IsKind(err, tc.kind), err.Error())
			}
		})
	}
}

func TestRun_EmptyAllowList(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"snapcraft.yaml": `name: test
vendoring: []
parts:
  remote:
    plugin: nil
    source: https://github.com/example/remote.git
`})

	var out, errOut bytes.Buffer
	p, err := New(Options{ProjectDir: dir, Target: target, DryRun: true})
	require.NoError(t, err)

	err = p.Run(fake.CtxWithPrinter(&out, &errOut))
	if assert.Error(t, err) {
		assert.True(t, errors.IsKind(err, errors.DisallowedHost), err.Error())
	}
	assert.NotContains(t, errOut.String(), "Processing part")
	assert.Empty(t, p.Branches())
}

func TestRun_DryRunLocalDeclarations(t *testing.T) {
	testCases := map[string]struct {
		pyproject string
		branches  []string
		kind      errors.Kind
	}{
		"pyproject dependencies": {
			pyproject: `[project]
name = "app"
dependencies = ["requests>=2", "six"]
`,
			branches: []string{
				"app_python_packages_requests",
				"app_python_packages_six",
				"test_app",
				"master",
			},
		},
		"broken pyproject": {
			pyproject: "[project\ndependencies = [",
			kind:      errors.DependencyResolution,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			dir := t.TempDir()
			testutil.WriteFiles(t, dir, map[string]string{
				"snapcraft.yaml": `name: test
parts:
  app:
    plugin: python
    source: .
`,
				"pyproject.toml": tc.pyproject,
			})

			p, err := New(Options{ProjectDir: dir, Target: target, DryRun: true})
			require.NoError(t, err)
			err = p.Run(fake.CtxWithDefaultPrinter())
			if tc.kind != 0 {
				if assert.Error(t, err) {
					assert.True(t, errors.IsKind(err, tc.kind), err.Error())
				}
				return
			}
			require.NoError(t, err)

			var names []string
			for _, b := range p.Branches() {
				names = append(names, b.Name)
			}
			if diff := cmp.Diff(tc.branches, names); diff != "" {
				t.Errorf("branches (-want +got):\n%s", diff)
			}
			assert.NoDirExists(t, WorkDir(p.opts.ProjectDir))
		})
	}
}

// listFiles returns every path below dir.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		files = append(files, rel)
		return err
	})
	require.NoError(t, err)
	return files
}

func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	manifest := `name: test
version: '0.1'
parts:
  test:
    plugin: python
    source: .
    python-packages: [foo]
  remote:
    plugin: nil
    source: https://github.com/example/remote.git
    source-tag: v1
  allowed:
    plugin: dump
    source: https://git.launchpad.net/example/allowed.git
`
	testutil.WriteFiles(t, dir, map[string]string{"snapcraft.yaml": manifest})
	before := listFiles(t, dir)

	var out bytes.Buffer
	p, err := New(Options{ProjectDir: dir, Target: target, DryRun: true})
	require.NoError(t, err)
	require.NoError(t, p.Run(fake.CtxWithPrinter(&out, &out)))

	workDir := WorkDir(p.opts.ProjectDir)
	expected := []repo.Branch{
		{Name: "test_python_packages_foo", Dir: filepath.Join(python.CacheDir(p.opts.ProjectDir, "test"), "foo")},
		{Name: "test_test", Dir: workDir},
		{Name: "test_remote", Dir: filepath.Join(p.opts.ProjectDir, "parts", "remote", "src")},
		{Name: "master", Dir: workDir},
	}
	if diff := cmp.Diff(expected, p.Branches()); diff != "" {
		t.Errorf("branches (-want +got):\n%s", diff)
	}

	assert.Equal(t, before, listFiles(t, dir))
	testutil.AssertFile(t, filepath.Join(dir, "snapcraft.yaml"), manifest)
	for _, b := range expected {
		assert.Contains(t, out.String(), b.Name)
	}
}

func TestRun(t *testing.T) {
	testutil.RequireGit(t)
	ctx := fake.CtxWithDefaultPrinter()

	upstream := testutil.NewGitRepo(t, map[string]string{"README": "upstream"})
	testutil.Git(t, upstream, "tag", "v1")
	bare := testutil.NewBareRepo(t)
	t.Setenv("GIT_CONFIG_COUNT", "2")
	t.Setenv("GIT_CONFIG_KEY_0", "url."+bare+".insteadOf")
	t.Setenv("GIT_CONFIG_VALUE_0", target)
	t.Setenv("GIT_CONFIG_KEY_1", "url."+upstream+".insteadOf")
	t.Setenv("GIT_CONFIG_VALUE_1", "https://github.com/example/upstream.git")

	dir := t.TempDir()
	manifest := `name: test # the snap
version: '0.1'
parts:
  app:
    plugin: nil
    source: https://github.com/example/upstream.git
    source-tag: v1
  local:
    plugin: nil
`
	testutil.WriteFiles(t, dir, map[string]string{
		"snapcraft.yaml":    manifest,
		"bin/run":           "#!/bin/sh\n",
		"parts/stale/state": "old",
		"snap/gui/icon.svg": "<svg/>",
	})

	p, err := New(Options{
		ProjectDir: dir,
		Target:     target,
		Hosts:      []string{"git.launchpad.net"},
		Identity:   identity,
	})
	require.NoError(t, err)
	require.NoError(t, p.Run(ctx))

	assert.Equal(t, []string{"master", "test_app"}, testutil.Branches(t, bare))
	assert.Equal(t, "upstream", testutil.ShowFile(t, bare, "test_app", "README"))
	assert.Equal(t, `name: test # the snap
version: '0.1'
parts:
  app:
    plugin: nil
    source: https://git.launchpad.net/~user/test
    source-branch: test_app
  local:
    plugin: nil
vendoring:
- git.launchpad.net
`, testutil.ShowFile(t, bare, "master", "snapcraft.yaml")+"\n")
	assert.Equal(t, "<svg/>", testutil.ShowFile(t, bare, "master", "snap/gui/icon.svg"))
	assert.Equal(t, "Jane Doe <jane@example.com>",
		testutil.Git(t, bare, "log", "-1", "--format=%an <%ae>", "master"))
	assert.Equal(t, "Vendor test", testutil.Git(t, bare, "log", "-1", "--format=%s", "master"))

	files := testutil.Git(t, bare, "ls-tree", "-r", "--name-only", "master")
	assert.NotContains(t, files, "parts/")
	assert.NotContains(t, files, "snap/vendoring")

	// the project itself is left alone
	testutil.AssertFile(t, filepath.Join(dir, "snapcraft.yaml"), manifest)
}

func TestRun_GitProject(t *testing.T) {
	testutil.RequireGit(t)
	ctx := fake.CtxWithDefaultPrinter()

	bare := testutil.NewBareRepo(t)
	t.Setenv("GIT_CONFIG_COUNT", "1")
	t.Setenv("GIT_CONFIG_KEY_0", "url."+bare+".insteadOf")
	t.Setenv("GIT_CONFIG_VALUE_0", target)

	dir := testutil.NewGitRepo(t, map[string]string{
		"snapcraft.yaml": "name: test\nparts:\n  local:\n    plugin: nil\n",
		"tracked":        "yes",
	})
	testutil.WriteFiles(t, dir, map[string]string{"untracked": "no"})

	p, err := New(Options{ProjectDir: dir, Target: target, Identity: identity})
	require.NoError(t, err)
	require.NoError(t, p.Run(ctx))

	assert.Equal(t, []string{"master"}, testutil.Branches(t, bare))
	assert.Equal(t, "yes", testutil.ShowFile(t, bare, "master", "tracked"))
	files := testutil.Git(t, bare, "ls-tree", "-r", "--name-only", "master")
	assert.NotContains(t, files, "untracked")
}
