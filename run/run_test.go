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

package run

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vendorize/vendorize/internal/util/cmdutil"
	"github.com/vendorize/vendorize/pkg/printer/fake"
)

func TestGetMain(t *testing.T) {
	cmd := GetMain(fake.CtxWithDefaultPrinter())
	assert.Equal(t, "vendorize", cmd.Name())
	assert.True(t, cmd.SilenceErrors)
	for _, name := range []string{"dry-run", "debug", "host", "default-branch", "config"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	assert.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), version)
}

func TestGetMain_StackTrace(t *testing.T) {
	cmd := GetMain(fake.CtxWithDefaultPrinter())
	defer func() { cmdutil.StackOnError = false }()

	cmd.SetArgs([]string{"--stack-trace"})
	assert.Error(t, cmd.Execute())
	assert.True(t, cmdutil.StackOnError)
}
