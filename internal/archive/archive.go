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

// Package archive safely unpacks tar-family archives. Entries may never be
// written outside the destination directory.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/types"
	"go.uber.org/multierr"
)

var suffixes = []string{".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tbz2", ".tar.xz", ".txz"}

// leadingDots matches any run of "./", "../" and "/" at the start of a name.
var leadingDots = regexp.MustCompile(`^(\.{0,2}/)*`)

// IsArchive returns true if name has a tar-family suffix.
func IsArchive(name string) bool {
	return TrimExt(name) != name
}

// TrimExt returns name without its tar-family suffix.
func TrimExt(name string) string {
	lower := strings.ToLower(name)
	best := ""
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) && len(s) > len(best) {
			best = s
		}
	}
	return name[:len(name)-len(best)]
}

// Extract unpacks the archive at archivePath into destDir, stripping the
// common root folder of its entries if there is one.
func Extract(archivePath, destDir string) error {
	const op errors.Op = "archive.Extract"

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return errors.E(op, errors.IO, err)
	}

	entries, err := scan(archivePath)
	if err != nil {
		return errors.E(op, types.UniquePath(archivePath), err)
	}
	prefix := commonRoot(entries)

	if err := os.MkdirAll(absDest, 0755); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(absDest), err)
	}

	r, err := open(archivePath)
	if err != nil {
		return errors.E(op, errors.Extraction, types.UniquePath(archivePath), err)
	}
	defer r.Close()

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return errors.E(op, errors.Extraction, types.UniquePath(archivePath), err)
		}
		name := normalize(hdr.Name)
		if name == prefix {
			continue
		}
		name = stripPrefix(prefix, name)
		if name == "" {
			continue
		}
		if err := writeEntry(absDest, name, prefix, hdr, tr); err != nil {
			return errors.E(op, types.UniquePath(archivePath), err)
		}
	}
	return nil
}

type entry struct {
	name  string
	isDir bool
}

// scan reads every header of the archive and rejects names that are
// absolute or traverse upwards before anything is written.
func scan(archivePath string) ([]entry, error) {
	r, err := open(archivePath)
	if err != nil {
		return nil, errors.E(errors.Extraction, err)
	}
	defer r.Close()

	var entries []entry
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return nil, errors.E(errors.Extraction, err)
		}
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		if err := checkName(hdr.Name); err != nil {
			return nil, err
		}
		if hdr.Typeflag == tar.TypeLink {
			if err := checkName(hdr.Linkname); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry{
			name:  normalize(hdr.Name),
			isDir: hdr.Typeflag == tar.TypeDir,
		})
	}
	if len(entries) == 0 {
		return nil, errors.E(errors.Extraction, fmt.Errorf("archive is empty"))
	}
	return entries, nil
}

func checkName(name string) error {
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return errors.E(errors.PathTraversal,
			fmt.Errorf("invalid filename %q, absolute paths are not allowed", name))
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return errors.E(errors.PathTraversal,
				fmt.Errorf("invalid filename %q, traversal with \"..\" outside of destination", name))
		}
	}
	return nil
}

func normalize(name string) string {
	return strings.TrimSuffix(filepath.ToSlash(name), "/")
}

// commonRoot returns the folder every entry lives in, or "" if the
// entries do not share one.
func commonRoot(entries []entry) string {
	prefix := entries[0].name
	for _, e := range entries[1:] {
		prefix = commonPrefix(prefix, e.name)
	}
	for _, e := range entries {
		if !(strings.HasPrefix(e.name, prefix+"/") || (e.isDir && e.name == prefix)) {
			prefix = parent(prefix)
			break
		}
	}
	return prefix
}

// parent returns everything before the last slash of p, without trailing
// slashes and without cleaning, so "./pkg/" yields "./pkg".
func parent(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	head := p[:i]
	if trimmed := strings.TrimRight(head, "/"); trimmed != "" {
		return trimmed
	}
	return head
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

// stripPrefix removes the root folder and any leading "./", "../" or "/"
// the first strip left behind.
func stripPrefix(prefix, name string) string {
	if prefix != "" {
		name = strings.TrimPrefix(name, prefix+"/")
	}
	return leadingDots.ReplaceAllString(name, "")
}

func writeEntry(dest, name, prefix string, hdr *tar.Header, r io.Reader) error {
	target, err := within(dest, name)
	if err != nil {
		return err
	}
	if err := noSymlinkParents(dest, target); err != nil {
		return err
	}

	mode := hdr.FileInfo().Mode().Perm()
	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := notSymlink(target); err != nil {
			return err
		}
		if err := os.MkdirAll(target, 0755); err != nil {
			return errors.E(errors.IO, err)
		}
		return chmod(target, mode|0700)

	case tar.TypeReg, tar.TypeRegA:
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.E(errors.IO, err)
		}
		if err := removeExisting(target); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode|0200)
		if err != nil {
			return errors.E(errors.IO, err)
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			return errors.E(errors.Extraction, fmt.Errorf("reading %q: %w", hdr.Name, err))
		}
		if err := f.Close(); err != nil {
			return errors.E(errors.IO, err)
		}
		return chmod(target, mode|0200)

	case tar.TypeSymlink:
		linkTarget := filepath.FromSlash(hdr.Linkname)
		if filepath.IsAbs(linkTarget) {
			return errors.E(errors.PathTraversal,
				fmt.Errorf("symlink %q has absolute target %q", hdr.Name, hdr.Linkname))
		}
		if err := linkWithin(dest, target, linkTarget); err != nil {
			return errors.E(errors.PathTraversal,
				fmt.Errorf("symlink %q points outside of destination: %q: %w", hdr.Name, hdr.Linkname, err))
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.E(errors.IO, err)
		}
		if err := removeExisting(target); err != nil {
			return err
		}
		if err := os.Symlink(linkTarget, target); err != nil {
			return errors.E(errors.IO, err)
		}
		return nil

	case tar.TypeLink:
		source, err := within(dest, stripPrefix(prefix, normalize(hdr.Linkname)))
		if err != nil {
			return err
		}
		if err := noSymlinkParents(dest, source); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.E(errors.IO, err)
		}
		if err := removeExisting(target); err != nil {
			return err
		}
		if err := os.Link(source, target); err != nil {
			return errors.E(errors.IO, err)
		}
		return nil
	}
	// Devices, fifos and extended headers carry nothing worth vendoring.
	return nil
}

// within joins name onto dest and verifies the result stays inside dest.
func within(dest, name string) (string, error) {
	target := filepath.Clean(filepath.Join(dest, filepath.FromSlash(name)))
	rel, err := filepath.Rel(dest, target)
	if err != nil {
		return "", errors.E(errors.PathTraversal, err)
	}
	for _, component := range strings.Split(rel, string(os.PathSeparator)) {
		if component == ".." {
			return "", errors.E(errors.PathTraversal,
				fmt.Errorf("%q resolves outside of destination %q", name, dest))
		}
	}
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", errors.E(errors.PathTraversal,
			fmt.Errorf("%q resolves outside of destination %q", name, dest))
	}
	return target, nil
}

// noSymlinkParents rejects targets whose existing parent directories
// inside dest are symlinks, which would let an entry write elsewhere.
func noSymlinkParents(dest, target string) error {
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil || rel == "." {
		return nil
	}
	current := dest
	for _, component := range strings.Split(rel, string(os.PathSeparator)) {
		current = filepath.Join(current, component)
		fi, err := os.Lstat(current)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return errors.E(errors.IO, err)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return errors.E(errors.PathTraversal,
				fmt.Errorf("cannot extract %q through symlink %q", target, current))
		}
	}
	return nil
}

// notSymlink rejects an existing symlink at target. MkdirAll and Chmod
// would otherwise follow it.
func notSymlink(target string) error {
	fi, err := os.Lstat(target)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.E(errors.IO, err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return errors.E(errors.PathTraversal,
			fmt.Errorf("cannot extract directory %q over symlink", target))
	}
	return nil
}

// linkWithin resolves linkTarget from the directory of target against what
// is already on disk and verifies the result stays inside dest.
func linkWithin(dest, target, linkTarget string) error {
	realDest, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return err
	}
	// noSymlinkParents has already ruled out links between dest and target.
	relParent, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil {
		return err
	}
	resolved, err := resolveOnDisk(filepath.Join(realDest, relParent), linkTarget)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(realDest, resolved)
	if err != nil {
		return err
	}
	_, err = within(realDest, rel)
	return err
}

// resolveOnDisk walks linkTarget component by component starting at dir,
// following the symlinks that already exist.
func resolveOnDisk(dir, linkTarget string) (string, error) {
	current := dir
	for _, component := range strings.Split(filepath.ToSlash(linkTarget), "/") {
		switch component {
		case "", ".":
			continue
		case "..":
			current = filepath.Dir(current)
			continue
		}
		current = filepath.Join(current, component)
		fi, err := os.Lstat(current)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			if current, err = filepath.EvalSymlinks(current); err != nil {
				return "", err
			}
		}
	}
	return current, nil
}

func removeExisting(target string) error {
	fi, err := os.Lstat(target)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.E(errors.IO, err)
	}
	if fi.IsDir() {
		return errors.E(errors.Extraction, fmt.Errorf("%q already exists as a directory", target))
	}
	if err := os.Remove(target); err != nil {
		return errors.E(errors.IO, err)
	}
	return nil
}

func chmod(target string, mode os.FileMode) error {
	if err := os.Chmod(target, mode); err != nil {
		return errors.E(errors.IO, err)
	}
	return nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i].Close())
	}
	return err
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// open returns the uncompressed tar stream of archivePath. Compression
// is taken from the suffix, falling back to the magic bytes for plain
// ".tar" and unknown names.
func open(archivePath string) (io.ReadCloser, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	compression := compressionFor(archivePath)
	if compression == "" {
		magic, _ := br.Peek(len(xzMagic))
		switch {
		case bytes.HasPrefix(magic, gzipMagic):
			compression = "gz"
		case bytes.HasPrefix(magic, bzip2Magic):
			compression = "bz2"
		case bytes.HasPrefix(magic, xzMagic):
			compression = "xz"
		}
	}

	rc := &readCloser{Reader: br, closers: []io.Closer{f}}
	switch compression {
	case "gz":
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, err
		}
		rc.Reader = zr
		rc.closers = append(rc.closers, zr)
	case "bz2":
		rc.Reader = bzip2.NewReader(br)
	case "xz":
		xr, err := xz.NewReader(br)
		if err != nil {
			f.Close()
			return nil, err
		}
		rc.Reader = xr
	}
	return rc, nil
}

func compressionFor(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return "gz"
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return "bz2"
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return "xz"
	}
	return ""
}
