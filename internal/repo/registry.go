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

package repo

import (
	"fmt"

	"github.com/vendorize/vendorize/internal/errors"
)

// Registry records the branches of a run in the order they were
// prepared. It only grows, and is not safe for concurrent use.
type Registry struct {
	names []string
	dirs  map[string]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{dirs: make(map[string]string)}
}

// Register adds the branch name for dir. Registering the same pair twice
// is a no-op; reusing a name for another directory fails.
func (r *Registry) Register(name, dir string) error {
	const op errors.Op = "repo.Register"
	if existing, found := r.dirs[name]; found {
		if existing == dir {
			return nil
		}
		return errors.E(op, errors.Exist,
			fmt.Errorf("branch %q is already used for %q", name, existing))
	}
	r.names = append(r.names, name)
	r.dirs[name] = dir
	return nil
}

// Len returns the number of registered branches.
func (r *Registry) Len() int {
	return len(r.names)
}

// Branches returns the registered branches in registration order. Only
// Name and Dir are set.
func (r *Registry) Branches() []Branch {
	branches := make([]Branch, 0, len(r.names))
	for _, n := range r.names {
		branches = append(branches, Branch{Name: n, Dir: r.dirs[n]})
	}
	return branches
}
