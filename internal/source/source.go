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

// Package source classifies part sources and fetches remote ones.
package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/docker/go-units"
	"github.com/vendorize/vendorize/internal/archive"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/types"
	"github.com/vendorize/vendorize/internal/util/httputil"
	"github.com/vendorize/vendorize/pkg/printer"
)

// Kind is the kind of a part source.
type Kind string

const (
	Local       Kind = "local"
	Git         Kind = "git"
	Tar         Kind = "tar"
	Unsupported Kind = "unsupported"
)

// DefaultSource is used for parts without a source.
const DefaultSource = "."

// scpLike matches the user@host:path shorthand git accepts for ssh.
var scpLike = regexp.MustCompile(`^[^@/:]+@([^:/]+):`)

// Source describes where the content of a part comes from.
type Source struct {
	// Raw is the source exactly as written in the manifest.
	Raw string
	// Type is the declared source-type, if any.
	Type string
	Kind Kind
	// Host is the host Raw points at, or empty for local sources.
	Host string
	// Ref is the branch or tag checked out for git sources.
	Ref string
	// RequiresVendoring is true when Host is not allowed.
	RequiresVendoring bool

	projectDir string
}

// Classify determines the kind of raw relative to projectDir. A declared
// typeHint is trusted as is.
func Classify(raw, typeHint, projectDir string, allowed []string) (*Source, error) {
	const op errors.Op = "source.Classify"
	if raw == "" {
		raw = DefaultSource
	}

	s := &Source{
		Raw:        raw,
		Type:       typeHint,
		Host:       Host(raw),
		projectDir: projectDir,
	}
	s.RequiresVendoring = s.Host != "" && !slices.Contains(allowed, s.Host)

	switch {
	case typeHint != "":
		switch Kind(typeHint) {
		case Local, Git, Tar:
			s.Kind = Kind(typeHint)
		default:
			s.Kind = Unsupported
		}
	case isDir(filepath.Join(projectDir, raw)):
		s.Kind = Local
	case strings.HasPrefix(raw, "git:"), strings.HasPrefix(raw, "git@"), strings.HasSuffix(raw, ".git"):
		s.Kind = Git
	case archive.IsArchive(raw):
		s.Kind = Tar
	default:
		return nil, errors.E(op, errors.UnknownSourceKind, fmt.Errorf("unknown source %q", raw))
	}
	return s, nil
}

// Host returns the host of a URL or of the user@host:path shorthand. It
// returns the empty string for anything else.
func Host(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Hostname()
	}
	if m := scpLike.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

// IsURL reports whether raw carries a scheme.
func (s *Source) IsURL() bool {
	u, err := url.Parse(s.Raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// LocalPath returns the source resolved against the project directory.
func (s *Source) LocalPath() string {
	return filepath.Join(s.projectDir, s.Raw)
}

// Cloner clones git repositories.
type Cloner interface {
	Clone(ctx context.Context, src, dest, ref string) error
}

// Fetch places the content of the source in dest. Nothing happens if dest
// already exists, so every source is fetched at most once.
func (s *Source) Fetch(ctx context.Context, dest string, cloner Cloner) error {
	const op errors.Op = "source.Fetch"
	pr := printer.FromContextOrDie(ctx)

	if _, err := os.Stat(dest); err == nil {
		pr.Debugf("%s already fetched into %s", s.Raw, dest)
		return nil
	}

	switch s.Kind {
	case Local:
		return nil
	case Git:
		src := s.Raw
		if isDir(s.LocalPath()) {
			src = s.LocalPath()
		}
		if err := cloner.Clone(ctx, src, dest, s.Ref); err != nil {
			return errors.E(op, err)
		}
		return nil
	case Tar:
		if !s.RequiresVendoring {
			return nil
		}
		archivePath, err := s.download(ctx)
		if err != nil {
			return errors.E(op, err)
		}
		if err := archive.Extract(archivePath, dest); err != nil {
			return errors.E(op, err)
		}
		return nil
	}
	return errors.E(op, errors.UnknownSourceKind,
		fmt.Errorf("cannot fetch %q of type %q", s.Raw, s.Type))
}

// download returns the local path of a tar source, downloading it into
// the parts cache of the project if it is a URL.
func (s *Source) download(ctx context.Context) (string, error) {
	const op errors.Op = "source.download"
	if !s.IsURL() {
		return s.LocalPath(), nil
	}

	u, _ := url.Parse(s.Raw)
	cached := filepath.Join(s.projectDir, "parts", path.Base(u.Path))
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	pr := printer.FromContextOrDie(ctx)
	pr.Debugf("downloading %s", s.Raw)
	n, err := httputil.Download(ctx, s.Raw, cached)
	if err != nil {
		return "", errors.E(op, errors.IO, types.UniquePath(cached), err)
	}
	pr.Debugf("downloaded %s (%s)", s.Raw, units.HumanSize(float64(n)))
	return cached, nil
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
