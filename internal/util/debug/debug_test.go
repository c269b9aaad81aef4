// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package debug

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/docmap/internal/util/testutil"
)

func TestHandler(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(testutil.Ctx(t))

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docmap_datastore_aggregations_total",
		Help: "Test counter.",
	})
	reg.MustRegister(c)
	c.Add(3)

	h, err := Listen(&ListenOpts{
		TCPAddr: "127.0.0.1:0",
		L:       testutil.Logger(t),
		R:       reg,
		G:       reg,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		h.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	root := "http://" + h.Addr().String()

	get := func(t *testing.T, path string) []byte {
		t.Helper()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, root+path, nil)
		require.NoError(t, err)

		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		defer res.Body.Close()

		require.Equal(t, http.StatusOK, res.StatusCode)

		b, err := io.ReadAll(res.Body)
		require.NoError(t, err)

		return b
	}

	t.Run("Index", func(t *testing.T) {
		assert.Contains(t, string(get(t, "/")), "/debug/metrics")
	})

	t.Run("Metrics", func(t *testing.T) {
		assert.Contains(t, string(get(t, "/debug/metrics")), "docmap_datastore_aggregations_total 3")
	})

	t.Run("Archive", func(t *testing.T) {
		b := get(t, "/debug/archive?seconds=1")

		zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
		require.NoError(t, err)

		var names []string
		for _, f := range zr.File {
			names = append(names, f.Name)
		}

		assert.Contains(t, names, "metrics.txt")
		assert.Contains(t, names, "errors.txt")
	})

	assert.Equal(t, float64(3), sum(newGatherer(reg, testutil.Logger(t)), "docmap_datastore_aggregations_total"))
}
