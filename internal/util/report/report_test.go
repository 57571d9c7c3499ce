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

package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendorize/vendorize/internal/repo"
)

func TestTable(t *testing.T) {
	var out bytes.Buffer
	Table(&out, []repo.Branch{
		{Name: "test_test", Dir: "/project/snap/vendoring/src"},
		{Name: "test_python_packages_foo", Dir: "/project/parts/test/python-packages/foo"},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, out.String(), "BRANCH")
	assert.Contains(t, out.String(), "DIRECTORY")

	var first, second int
	for i, l := range lines {
		if strings.Contains(l, "test_test") {
			first = i
		}
		if strings.Contains(l, "test_python_packages_foo") {
			second = i
		}
	}
	assert.Greater(t, second, first)
	assert.Contains(t, out.String(), "/project/parts/test/python-packages/foo")
}

func TestTree(t *testing.T) {
	var out bytes.Buffer
	err := Tree(&out, "test", []Group{
		{
			Name: "test",
			Branches: []repo.Branch{
				{Name: "test_python_packages_foo"},
				{Name: "test_test"},
			},
		},
		{Name: "empty"},
	}, []repo.Branch{{Name: "master"}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "test", lines[0])
	assert.Contains(t, lines[1], "test")
	assert.Contains(t, lines[2], "test_python_packages_foo")
	assert.Contains(t, lines[3], "test_test")
	assert.Contains(t, lines[4], "empty")
	assert.Contains(t, lines[5], "master")
}
