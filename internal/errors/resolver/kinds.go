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

package resolver

import (
	"strings"

	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/manifest"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&kindErrorResolver{})
}

const (
	manifestNotFoundMsg = `
Error: No snapcraft.yaml found in {{ printf "%q" .path }}. Looked for {{ .candidates }}.
`

	disallowedHostMsg = `
Error: Host not allowed.
{{- template "NestedErrDetails" . }}
Allow it with --host, or list it under "vendoring" in snapcraft.yaml.
`

	pathTraversalMsg = `
Error: Archive {{ printf "%q" .path }} tries to write outside of its destination and was rejected.
{{- template "NestedErrDetails" . }}
`

	missingIdentityMsg = `
Error: No identity to commit with. Set REAL_NAME and EMAIL_ADDRESS, or configure git user.name and user.email.
`

	kindMsg = `
Error: {{ .kind }}
{{- if .path }} at {{ printf "%q" .path }}{{ end }}.
{{- template "NestedErrDetails" . }}
`
)

var kindMessages = map[errors.Kind]string{
	errors.ManifestNotFound:             manifestNotFoundMsg,
	errors.DisallowedHost:               disallowedHostMsg,
	errors.PathTraversal:                pathTraversalMsg,
	errors.MissingIdentity:              missingIdentityMsg,
	errors.UnknownSourceKind:            kindMsg,
	errors.UnsupportedPluginKind:        kindMsg,
	errors.UnsupportedExternalReference: kindMsg,
	errors.DependencyResolution:         kindMsg,
	errors.Extraction:                   kindMsg,
	errors.InvalidParam:                 kindMsg,
	errors.Exist:                        kindMsg,
}

// kindErrorResolver produces error messages for *errors.Error values based
// on the first kind in the chain that has a message.
type kindErrorResolver struct{}

func (*kindErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var path string
	var match *errors.Error
	for err != nil {
		var e *errors.Error
		if !errors.As(err, &e) {
			break
		}
		if path == "" && !e.Path.Empty() {
			path = string(e.Path)
			if rel, err := e.Path.RelativePath(); err == nil {
				path = rel
			}
		}
		if _, found := kindMessages[e.Kind]; found && match == nil {
			match = e
		}
		err = e.Err
	}
	if match == nil {
		return ResolvedResult{}, false
	}

	tmplArgs := map[string]interface{}{
		"kind":       match.Kind.String(),
		"path":       path,
		"err":        match,
		"candidates": strings.Join(manifest.Candidates, ", "),
	}
	return ResolvedResult{
		Message: ExecuteTemplate(kindMessages[match.Kind], tmplArgs),
	}, true
}
