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

// Package report renders the branches of a run for review.
package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vendorize/vendorize/internal/repo"
	"github.com/xlab/treeprint"
)

// Group is a set of branches created on behalf of one part.
type Group struct {
	Name     string
	Branches []repo.Branch
}

// Table writes one row per branch, in registration order.
func Table(w io.Writer, branches []repo.Branch) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"BRANCH", "DIRECTORY"})
	for _, b := range branches {
		t.AppendRow(table.Row{b.Name, b.Dir})
	}
	t.Render()
}

// Tree writes the branches of every group under root. Branches created
// outside any part are listed directly below root.
func Tree(w io.Writer, root string, groups []Group, rest []repo.Branch) error {
	tree := treeprint.New()
	tree.SetValue(root)
	for _, g := range groups {
		branch := tree.AddBranch(g.Name)
		for _, b := range g.Branches {
			branch.AddNode(b.Name)
		}
	}
	for _, b := range rest {
		tree.AddNode(b.Name)
	}
	_, err := io.WriteString(w, tree.String())
	return err
}
