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

package backends_test // to avoid import cycle

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/backends"
	"github.com/FerretDB/docmap/internal/backends/mongodb"
	"github.com/FerretDB/docmap/internal/backends/postgresql"
	"github.com/FerretDB/docmap/internal/backends/sqlite"
	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/internal/util/testutil"
)

// testBackends returns all backends configured for testing contracts.
//
// SQLite backend is always present; others are added when their URLs are set
// by DOCMAP_TEST_POSTGRESQL_URL and DOCMAP_TEST_MONGODB_URI environment variables.
func testBackends(t *testing.T) map[string]backends.Backend {
	t.Helper()

	l := testutil.Logger(t)

	res := map[string]backends.Backend{}

	{
		b, err := sqlite.NewBackend(&sqlite.NewBackendParams{
			URI: testutil.SQLiteURI(t),
			L:   l.Named("sqlite"),
		})
		require.NoError(t, err)
		t.Cleanup(b.Close)

		res["sqlite"] = b
	}

	if uri := os.Getenv("DOCMAP_TEST_POSTGRESQL_URL"); uri != "" && !testing.Short() {
		b, err := postgresql.NewBackend(&postgresql.NewBackendParams{
			URI: uri,
			L:   l.Named("postgresql"),
		})
		require.NoError(t, err)
		t.Cleanup(b.Close)

		res["postgresql"] = b
	}

	if uri := os.Getenv("DOCMAP_TEST_MONGODB_URI"); uri != "" && !testing.Short() {
		b, err := mongodb.NewBackend(&mongodb.NewBackendParams{
			URI: uri,
			L:   l.Named("mongodb"),
		})
		require.NoError(t, err)
		t.Cleanup(b.Close)

		res["mongodb"] = b
	}

	return res
}

// cleanupCollection drops the collection with the given name after the test.
func cleanupCollection(t *testing.T, ctx context.Context, b backends.Backend, name string) {
	t.Helper()

	t.Cleanup(func() {
		_ = b.DropCollection(ctx, &backends.DropCollectionParams{Name: name})
	})
}

// aggregate runs the pipeline and returns all documents.
func aggregate(t *testing.T, ctx context.Context, b backends.Backend, collection string, pipeline []bson.D) []bson.D {
	t.Helper()

	res, err := b.Aggregate(ctx, &backends.AggregateParams{
		Collection: collection,
		Pipeline:   pipeline,
	})
	require.NoError(t, err)

	defer res.Iter.Close()

	docs, err := iterator.ConsumeValues(res.Iter)
	require.NoError(t, err)

	return docs
}

// assertErrorCode asserts that err is *Error with one of the given error codes.
func assertErrorCode(t *testing.T, err error, code backends.ErrorCode, codes ...backends.ErrorCode) {
	t.Helper()

	assert.True(t, backends.ErrorCodeIs(err, code, codes...), "err = %v", err)
}
