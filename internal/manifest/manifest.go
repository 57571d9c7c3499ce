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

// Package manifest reads, edits and writes snapcraft.yaml files while
// keeping their key order and comments.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	goerrors "github.com/go-errors/errors"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/types"
	"sigs.k8s.io/kustomize/kyaml/yaml"
)

const (
	NameField      = "name"
	PartsField     = "parts"
	VendoringField = "vendoring"
)

// Candidates are the manifest locations probed by Locate, in order.
var Candidates = []string{
	"snapcraft.yaml",
	".snapcraft.yaml",
	filepath.Join("snap", "snapcraft.yaml"),
}

// Locate returns the path of the manifest relative to projectDir.
func Locate(projectDir string) (string, error) {
	const op errors.Op = "manifest.Locate"
	for _, c := range Candidates {
		if _, err := os.Stat(filepath.Join(projectDir, c)); err == nil {
			return c, nil
		}
	}
	return "", errors.E(op, errors.ManifestNotFound, types.UniquePath(projectDir),
		fmt.Errorf("no snapcraft.yaml found"))
}

// Manifest is a parsed snapcraft.yaml. Parts returned from it are views
// over the same document, so edits to them show up in Save.
type Manifest struct {
	// Path is relative to the project directory.
	Path string

	root *yaml.RNode
	// seqIndent is the sequence indentation style of the parsed content.
	seqIndent yaml.SequenceIndentStyle
}

// Load parses the manifest at relPath below projectDir.
func Load(projectDir, relPath string) (*Manifest, error) {
	const op errors.Op = "manifest.Load"
	if filepath.IsAbs(relPath) {
		return nil, errors.E(op, errors.InvalidParam, types.UniquePath(relPath),
			fmt.Errorf("path is not relative"))
	}
	p := filepath.Join(projectDir, relPath)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.E(op, errors.IO, types.UniquePath(p), err)
	}
	return Parse(relPath, string(b))
}

// Parse parses manifest content as if it was read from relPath.
func Parse(relPath, content string) (*Manifest, error) {
	const op errors.Op = "manifest.Parse"
	root, err := yaml.Parse(content)
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam, types.UniquePath(relPath), goerrors.Wrap(err, 1))
	}
	if root.YNode().Kind != yaml.MappingNode {
		return nil, errors.E(op, errors.InvalidParam, types.UniquePath(relPath),
			fmt.Errorf("expected a mapping at the top level"))
	}
	return &Manifest{
		Path:      relPath,
		root:      root,
		seqIndent: yaml.SequenceIndentStyle(yaml.DeriveSeqIndentStyle(content)),
	}, nil
}

// Name returns the snap name.
func (m *Manifest) Name() string {
	return scalar(m.root, NameField)
}

// Hosts returns the list stored under the vendoring key and whether the
// key is present.
func (m *Manifest) Hosts() ([]string, bool, error) {
	const op errors.Op = "manifest.Hosts"
	f := m.root.Field(VendoringField)
	if f == nil || isNull(f.Value) {
		return nil, false, nil
	}
	hosts, err := stringList(f.Value)
	if err != nil {
		return nil, true, errors.E(op, errors.InvalidParam, types.UniquePath(m.Path), err)
	}
	return hosts, true, nil
}

// SetHosts stores hosts under the vendoring key, appending the key if
// the manifest does not have it yet.
func (m *Manifest) SetHosts(hosts []string) error {
	const op errors.Op = "manifest.SetHosts"
	if err := m.root.PipeE(yaml.SetField(VendoringField, yaml.NewListRNode(hosts...))); err != nil {
		return errors.E(op, errors.Internal, goerrors.Wrap(err, 1))
	}
	return nil
}

// Parts returns the parts in manifest order.
func (m *Manifest) Parts() ([]*Part, error) {
	const op errors.Op = "manifest.Parts"
	parts, err := m.root.Pipe(yaml.Lookup(PartsField))
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam, types.UniquePath(m.Path), err)
	}
	if parts == nil || isNull(parts) {
		return nil, nil
	}
	if parts.YNode().Kind != yaml.MappingNode {
		return nil, errors.E(op, errors.InvalidParam, types.UniquePath(m.Path),
			fmt.Errorf("%q must be a mapping", PartsField))
	}

	names, err := parts.Fields()
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam, types.UniquePath(m.Path), err)
	}
	var result []*Part
	for _, name := range names {
		node := parts.Field(name).Value
		if isNull(node) {
			// `name:` without fields parses to null; turn it into an
			// empty mapping in place so it can be edited.
			y := node.YNode()
			y.Kind, y.Tag, y.Value = yaml.MappingNode, yaml.NodeTagMap, ""
		}
		if node.YNode().Kind != yaml.MappingNode {
			return nil, errors.E(op, errors.InvalidParam, types.UniquePath(m.Path),
				fmt.Errorf("part %q must be a mapping", name))
		}
		result = append(result, &Part{Name: name, node: node})
	}
	return result, nil
}

// String returns the serialized manifest, indenting lists the way the
// parsed content did.
func (m *Manifest) String() (string, error) {
	var b bytes.Buffer
	e := yaml.NewEncoderWithOptions(&b, &yaml.EncoderOptions{SeqIndent: m.seqIndent})
	if err := e.Encode(m.root.YNode()); err != nil {
		return "", err
	}
	if err := e.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Save writes the manifest to Path below dir.
func (m *Manifest) Save(dir string) error {
	const op errors.Op = "manifest.Save"
	out, err := m.String()
	if err != nil {
		return errors.E(op, errors.Internal, goerrors.Wrap(err, 1))
	}
	p := filepath.Join(dir, m.Path)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(p), err)
	}
	if err := os.WriteFile(p, []byte(out), 0644); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(p), err)
	}
	return nil
}

func isNull(node *yaml.RNode) bool {
	return node.IsNil() || node.YNode().Tag == yaml.NodeTagNull
}

func scalar(node *yaml.RNode, field string) string {
	f := node.Field(field)
	if f == nil || isNull(f.Value) || f.Value.YNode().Kind != yaml.ScalarNode {
		return ""
	}
	return f.Value.YNode().Value
}

func stringList(node *yaml.RNode) ([]string, error) {
	if node.YNode().Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a list, got %q", node.YNode().Tag)
	}
	elements, err := node.Elements()
	if err != nil {
		return nil, err
	}
	var values []string
	for _, e := range elements {
		if e.YNode().Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("expected a list of strings")
		}
		values = append(values, e.YNode().Value)
	}
	return values, nil
}
