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

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendorize/vendorize/internal/testutil"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/foo.tar.gz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()

	dest := filepath.Join(dir, "parts", "foo.tar.gz")
	n, err := Download(context.Background(), srv.URL+"/foo.tar.gz", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), n)
	testutil.AssertFile(t, dest, "payload")

	missing := filepath.Join(dir, "parts", "missing.tar.gz")
	_, err = Download(context.Background(), srv.URL+"/missing.tar.gz", missing)
	assert.Error(t, err)
	assert.NoFileExists(t, missing)
}
