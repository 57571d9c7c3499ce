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

// Package testutil contains helpers for building archives, git repositories
// and snap projects in tests.
package testutil

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// TarEntry describes a single entry written by WriteTar.
type TarEntry struct {
	Name     string
	Body     string
	Mode     int64
	Type     byte
	Linkname string
}

// Compression selects how WriteTar compresses the archive.
type Compression string

const (
	NoCompression Compression = ""
	Gzip          Compression = "gz"
	Xz            Compression = "xz"
)

// WriteTar creates a tar archive at path with the provided entries.
func WriteTar(t *testing.T, path string, compression Compression, entries ...TarEntry) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var w io.WriteCloser = nopCloser{f}
	switch compression {
	case Gzip:
		w = gzip.NewWriter(f)
	case Xz:
		w, err = xz.NewWriter(f)
		require.NoError(t, err)
	}

	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			Typeflag: e.Type,
			Linkname: e.Linkname,
		}
		if hdr.Typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
			if strings.HasSuffix(e.Name, "/") {
				hdr.Typeflag = tar.TypeDir
			}
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0644
			if hdr.Typeflag == tar.TypeDir {
				hdr.Mode = 0755
			}
		}
		if hdr.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, w.Close())
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// WriteFiles writes every path -> content pair below dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0700))
		require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	}
}

// AssertFile verifies the file at path exists with the given content.
func AssertFile(t *testing.T, path, content string) bool {
	t.Helper()
	b, err := os.ReadFile(path)
	if !assert.NoError(t, err) {
		return false
	}
	return assert.Equal(t, content, string(b))
}

// RequireGit skips the test if no git executable is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

// Git runs a git command in dir with a fixed test identity.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	args = append([]string{"-c", "user.name=Test", "-c", "user.email=test@example.com"}, args...)
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if !assert.NoError(t, err, string(out)) {
		t.FailNow()
	}
	return strings.TrimSpace(string(out))
}

// NewGitRepo initializes a repository in a temporary directory, writes
// files into it and commits them on branch master.
func NewGitRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	RequireGit(t)
	dir := t.TempDir()
	Git(t, dir, "init")
	Git(t, dir, "symbolic-ref", "HEAD", "refs/heads/master")
	WriteFiles(t, dir, files)
	Git(t, dir, "add", "--all")
	Git(t, dir, "commit", "--allow-empty", "-m", "initial")
	return dir
}

// NewBareRepo creates an empty bare repository usable as a push target.
func NewBareRepo(t *testing.T) string {
	t.Helper()
	RequireGit(t)
	dir := t.TempDir()
	Git(t, dir, "init", "--bare")
	return dir
}

// Branches returns the branch names of the repository at dir.
func Branches(t *testing.T, dir string) []string {
	t.Helper()
	out := Git(t, dir, "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// ShowFile returns the content of path at ref in the repository at dir.
func ShowFile(t *testing.T, dir, ref, path string) string {
	t.Helper()
	return Git(t, dir, "show", fmt.Sprintf("%s:%s", ref, path))
}
