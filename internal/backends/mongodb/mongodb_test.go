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

package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/docmap/internal/backends"
	"github.com/FerretDB/docmap/internal/util/testutil"
)

func TestNewBackendURI(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		uri string
		err string
	}{
		"NoDatabase": {
			uri: "mongodb://127.0.0.1:27017/",
			err: `no database name in MongoDB URI "mongodb://127.0.0.1:27017/"`,
		},
		"Invalid": {
			uri: "postgres://127.0.0.1/docmap",
			err: "scheme must be",
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := NewBackend(&NewBackendParams{
				URI: tc.uri,
				L:   testutil.Logger(t),
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestBackend(t *testing.T) {
	t.Parallel()

	uri := testutil.MongoDBURI(t)
	ctx := testutil.Ctx(t)

	b, err := NewBackend(&NewBackendParams{
		URI: uri,
		L:   testutil.Logger(t),
	})
	require.NoError(t, err)
	t.Cleanup(b.Close)

	_, err = b.ListCollections(ctx, new(backends.ListCollectionsParams))
	require.NoError(t, err)

	err = b.DropCollection(ctx, &backends.DropCollectionParams{Name: testutil.CollectionName(t)})
	assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeCollectionDoesNotExist), "%v", err)
}
