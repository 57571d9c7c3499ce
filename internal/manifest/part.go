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

package manifest

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	"github.com/vendorize/vendorize/internal/errors"
	"sigs.k8s.io/kustomize/kyaml/yaml"
)

const (
	SourceField       = "source"
	SourceTypeField   = "source-type"
	SourceBranchField = "source-branch"
	SourceTagField    = "source-tag"
	PluginField       = "plugin"
)

// Part is a view over one entry of the parts mapping.
type Part struct {
	Name string

	node *yaml.RNode
}

// Get returns the scalar value of field, or the empty string.
func (p *Part) Get(field string) string {
	return scalar(p.node, field)
}

// Has reports whether the part declares field.
func (p *Part) Has(field string) bool {
	return p.node.Field(field) != nil
}

// StringList returns the list stored under field.
func (p *Part) StringList(field string) ([]string, error) {
	const op errors.Op = "manifest.StringList"
	f := p.node.Field(field)
	if f == nil || isNull(f.Value) {
		return nil, nil
	}
	values, err := stringList(f.Value)
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam,
			fmt.Errorf("part %q field %q: %w", p.Name, field, err))
	}
	return values, nil
}

// Set sets field to a string value. New fields are appended.
func (p *Part) Set(field, value string) error {
	const op errors.Op = "manifest.Set"
	if err := p.node.PipeE(yaml.SetField(field, yaml.NewScalarRNode(value))); err != nil {
		return errors.E(op, errors.Internal, goerrors.Wrap(err, 1))
	}
	return nil
}

// Remove deletes field if it is present.
func (p *Part) Remove(field string) error {
	const op errors.Op = "manifest.Remove"
	if _, err := p.node.Pipe(yaml.Clear(field)); err != nil {
		return errors.E(op, errors.Internal, goerrors.Wrap(err, 1))
	}
	return nil
}

// Values returns field as a list, accepting either a single string or a
// list of strings.
func (p *Part) Values(field string) ([]string, error) {
	f := p.node.Field(field)
	if f == nil || isNull(f.Value) {
		return nil, nil
	}
	if f.Value.YNode().Kind == yaml.ScalarNode {
		return []string{f.Value.YNode().Value}, nil
	}
	return p.StringList(field)
}
